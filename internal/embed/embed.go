// Package embed builds os.context.text.embed records: keyphrases plus a
// deterministic pseudo-embedding of the text, never the raw text itself.
package embed

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"

	"github.com/heimgewebe/mitschreiber/internal/models"
)

// Model names the embedding scheme stored with each record
const Model = "hash32-demo"

// MaxDimension is the largest BLAKE2b digest, in bytes
const MaxDimension = blake2b.Size

const defaultKeyphrases = 5

var wordRE = regexp.MustCompile(`[\p{L}\p{N}_]{3,}`)

// Keyphrases returns the first n distinct lowercase tokens of at least
// three characters, in order of appearance
func Keyphrases(text string, n int) []string {
	seen := make(map[string]struct{})
	phrases := []string{}
	for _, tok := range wordRE.FindAllString(strings.ToLower(text), -1) {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		phrases = append(phrases, tok)
		if len(phrases) >= n {
			break
		}
	}
	return phrases
}

// Vector maps text to dim floats in [-0.5, 0.5) via a BLAKE2b digest
func Vector(text string, dim int) ([]float64, error) {
	if dim < 1 || dim > MaxDimension {
		return nil, errors.Errorf("dimension must be between 1 and %d, got %d", MaxDimension, dim)
	}

	h, err := blake2b.New(dim, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create blake2b hash")
	}
	h.Write([]byte(text))

	sum := h.Sum(nil)
	vec := make([]float64, len(sum))
	for i, b := range sum {
		vec[i] = float64(b)/255.0 - 0.5
	}
	return vec, nil
}

// HashText returns the hex SHA-256 of text
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Record is the input for one embed event
type Record struct {
	Timestamp time.Time
	SessionID string
	AppName   string
	Window    string
	Text      string
}

// Build creates the embed event for r
func Build(r Record, dim int) (*models.EmbedEvent, error) {
	vec, err := Vector(r.Text, dim)
	if err != nil {
		return nil, err
	}

	return &models.EmbedEvent{
		SessionID:   r.SessionID,
		Timestamp:   r.Timestamp,
		Source:      models.SourceEmbed,
		AppName:     r.AppName,
		WindowTitle: r.Window,
		Keyphrases:  Keyphrases(r.Text, defaultKeyphrases),
		Embedding:   vec,
		HashID:      "sha256:" + HashText(r.Text),
		Model:       Model,
		RawRetained: false,
	}, nil
}
