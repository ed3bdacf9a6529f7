package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainPlan prefixes plan fingerprints. The version suffix allows the
// canonical form to change later without colliding with old fingerprints.
const DomainPlan = "oqlc/plan/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data). The separator keeps
// the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint hashes the canonical JSON of p. Two compilations of the same
// statement with the same dialect have equal fingerprints.
func (p *Plan) Fingerprint() (string, error) {
	canonical, err := p.CanonicalJSON()
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hashWithDomain(DomainPlan, canonical), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when the plan is known to be serializable.
func (p *Plan) MustFingerprint() string {
	fp, err := p.Fingerprint()
	if err != nil {
		panic(err)
	}
	return fp
}
