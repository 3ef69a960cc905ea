package services

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// SaltSize is the byte length of generated election salts.
const SaltSize = 32

var errEmptySalt = errors.New("anonymity salt is empty")

// GenerateSalt returns a fresh random per-election key.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// VoterHash derives the anonymous storage key for a voter:
// hex(HMAC-SHA256(salt, voter_id ":" election_id)).
func VoterHash(salt []byte, voterID string, electionID string) (string, error) {
	if len(salt) == 0 {
		return "", errEmptySalt
	}
	mac := hmac.New(sha256.New, salt)
	mac.Write([]byte(strings.TrimSpace(voterID) + ":" + strings.TrimSpace(electionID)))
	return hex.EncodeToString(mac.Sum(nil)), nil
}
