package version

// Set at build time with -ldflags "-X github.com/heimgewebe/mitschreiber/version.Version=..."
var (
	Version = "0.1.0"
	Commit  = "unknown"
	Date    = "unknown"
)
