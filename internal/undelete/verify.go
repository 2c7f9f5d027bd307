package undelete

import (
	"context"
	"fmt"
	"io"

	"github.com/IAmSomeoneLikeYou/s3-restore/internal/logger"
)

// VerificationFinding is a key whose latest version is still a delete marker.
type VerificationFinding struct {
	Key       string
	VersionID string
}

type VerifyResult struct {
	Pages    int
	Scanned  int
	Findings []VerificationFinding
}

// Verifier re-walks the listing read-only and reports remaining markers.
type Verifier struct {
	lister *Lister
	out    io.Writer
}

func NewVerifier(lister *Lister, out io.Writer) *Verifier {
	if out == nil {
		out = io.Discard
	}
	return &Verifier{lister: lister, out: out}
}

func (v *Verifier) Run(ctx context.Context) (VerifyResult, error) {
	var result VerifyResult
	for page, err := range v.lister.Pages(ctx) {
		if err != nil {
			return result, err
		}
		result.Pages++
		result.Scanned += len(page.Entries)

		for _, entry := range FilterLatestDeleteMarkers(page) {
			result.Findings = append(result.Findings, VerificationFinding{Key: entry.Key, VersionID: entry.VersionID})
			fmt.Fprintf(v.out, "Object whose delete marker is still the latest version: %s\n", entry.Key)
			logger.Ctx(ctx).Debug().Str("key", entry.Key).Str("version_id", entry.VersionID).
				Msg("delete marker still latest")
		}
	}
	return result, nil
}
