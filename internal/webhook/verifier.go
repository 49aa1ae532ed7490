// Package webhook authenticates identity-provider deliveries and forwards
// verified account events to the user store.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrMissingHeaders is returned when any of the three svix headers is absent.
	ErrMissingHeaders = errors.New("missing svix headers")
	// ErrInvalidSignature is returned when no signature candidate matches.
	ErrInvalidSignature = errors.New("webhook signature mismatch")
	// ErrTimestampOutOfRange is returned when freshness checking is enabled
	// and the delivery timestamp falls outside the tolerance window.
	ErrTimestampOutOfRange = errors.New("webhook timestamp outside tolerance")
)

// Event is a verified delivery envelope ready for dispatch.
type Event struct {
	Type string      `json:"type"`
	Data UserPayload `json:"data"`
}

// UserPayload carries the identity-provider user fields.
type UserPayload struct {
	ID             string         `json:"id"`
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	ImageURL       string         `json:"image_url"`
	EmailAddresses []EmailAddress `json:"email_addresses"`
}

// EmailAddress is one entry of the ordered address list.
type EmailAddress struct {
	EmailAddress string `json:"email_address"`
}

// Verifier checks svix-style delivery signatures against a shared secret.
// It does not deduplicate by delivery id: replay protection beyond the
// optional timestamp tolerance is an accepted gap.
type Verifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier constructs a Verifier. The secret is required; a zero
// tolerance disables timestamp freshness checking.
func NewVerifier(secret string, tolerance time.Duration) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("webhook secret is not configured")
	}
	return &Verifier{
		secret:    decodeSecret(secret),
		tolerance: tolerance,
		now:       time.Now,
	}, nil
}

// decodeSecret strips the provider's whsec_ prefix and base64-decodes the
// remainder. Secrets that are not valid base64 are used as raw key bytes.
func decodeSecret(secret string) []byte {
	trimmed := strings.TrimPrefix(secret, "whsec_")
	if decoded, err := base64.StdEncoding.DecodeString(trimmed); err == nil {
		return decoded
	}
	return []byte(trimmed)
}

// Verify checks the delivery signature over the canonical string
// "{id}.{timestamp}.{body}" and returns the decoded event on success.
func (v *Verifier) Verify(body []byte, id, timestamp, signature string) (*Event, error) {
	if id == "" || timestamp == "" || signature == "" {
		return nil, ErrMissingHeaders
	}

	if err := v.checkFreshness(timestamp); err != nil {
		return nil, err
	}

	expected := v.sign(body, id, timestamp)
	if !matchesAny(signature, expected) {
		return nil, ErrInvalidSignature
	}

	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("decode verified event: %w", err)
	}
	return &event, nil
}

func (v *Verifier) checkFreshness(timestamp string) error {
	if v.tolerance <= 0 {
		return nil
	}
	seconds, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: unparseable timestamp", ErrTimestampOutOfRange)
	}
	age := v.now().Sub(time.Unix(seconds, 0))
	if age > v.tolerance || age < -v.tolerance {
		return ErrTimestampOutOfRange
	}
	return nil
}

func (v *Verifier) sign(body []byte, id, timestamp string) string {
	mac := hmac.New(sha256.New, v.secret)
	fmt.Fprintf(mac, "%s.%s.", id, timestamp)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// matchesAny compares the expected signature against each space-separated
// "v1,<base64>" candidate in the header, in constant time per candidate.
func matchesAny(header, expected string) bool {
	for _, candidate := range strings.Fields(header) {
		parts := strings.SplitN(candidate, ",", 2)
		if len(parts) != 2 || parts[0] != "v1" {
			continue
		}
		if hmac.Equal([]byte(parts[1]), []byte(expected)) {
			return true
		}
	}
	return false
}
