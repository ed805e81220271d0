package tor

import (
	"encoding/base32"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Onion address constants.
const (
	// OnionV3Length is the length of a v3 onion address without the ".onion" suffix.
	OnionV3Length = 56

	// OnionV3TotalLength is the total length including the ".onion" suffix.
	OnionV3TotalLength = 62

	// OnionV3Version is the version byte for v3 onion addresses.
	OnionV3Version = 0x03

	// OnionSuffix is the common suffix for all onion addresses.
	OnionSuffix = ".onion"
)

// onionV3Pattern matches v3 onion addresses (56 base32 characters + .onion).
var onionV3Pattern = regexp.MustCompile(`^[a-z2-7]{56}\.onion$`)

// onionV2Pattern matches the deprecated 16 character form.
var onionV2Pattern = regexp.MustCompile(`^[a-z2-7]{16}\.onion$`)

// checksumPrefix is the constant prefix hashed into a v3 checksum.
var checksumPrefix = []byte(".onion checksum")

// IsOnionHost reports whether host is in the .onion pseudo-TLD.
// Gopher holes served as hidden services may use a subdomain, e.g.
// "gopher.<56 chars>.onion".
func IsOnionHost(host string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimSuffix(host, ".")), OnionSuffix)
}

// onionServiceName strips subdomains: "a.b.<56>.onion" becomes "<56>.onion".
func onionServiceName(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	labels := strings.Split(strings.TrimSuffix(host, OnionSuffix), ".")
	return labels[len(labels)-1] + OnionSuffix
}

// IsValidV3Address checks format and checksum of a v3 onion address.
// The comparison is case-insensitive and the ".onion" suffix is required.
func IsValidV3Address(address string) bool {
	address = strings.ToLower(address)
	if !onionV3Pattern.MatchString(address) {
		return false
	}

	decoded, err := base32.StdEncoding.DecodeString(strings.ToUpper(strings.TrimSuffix(address, OnionSuffix)))
	if err != nil || len(decoded) != 35 {
		return false
	}

	// pubkey (32) | checksum (2) | version (1)
	pubkey, checksum, version := decoded[:32], decoded[32:34], decoded[34]
	if version != OnionV3Version {
		return false
	}

	expected := computeV3Checksum(pubkey, version)
	return checksum[0] == expected[0] && checksum[1] == expected[1]
}

// computeV3Checksum returns the first 2 bytes of SHA3-256(".onion checksum" || pubkey || version).
func computeV3Checksum(pubkey []byte, version byte) []byte {
	data := make([]byte, 0, len(checksumPrefix)+len(pubkey)+1)
	data = append(data, checksumPrefix...)
	data = append(data, pubkey...)
	data = append(data, version)

	hash := sha3.Sum256(data)
	return hash[:2]
}

// IsV2Address reports whether address has the deprecated v2 form.
func IsV2Address(address string) bool {
	return onionV2Pattern.MatchString(strings.ToLower(address))
}

// ValidateOnionHost checks the service name of an onion host.
func ValidateOnionHost(host string) error {
	name := onionServiceName(host)
	if IsValidV3Address(name) {
		return nil
	}
	if IsV2Address(name) {
		return ErrV2AddressDeprecated
	}
	return ErrInvalidOnionAddress
}

// HostPolicy returns the pre-dial host check for the Gopher transport.
// Non-onion hosts always pass. Onion hosts must be valid v3 addresses and,
// when proxied is false, are refused with ErrOnionNeedsProxy so that they
// are never handed to the system resolver.
func HostPolicy(proxied bool) func(host string) error {
	return func(host string) error {
		if !IsOnionHost(host) {
			return nil
		}
		if !proxied {
			return ErrOnionNeedsProxy
		}
		return ValidateOnionHost(host)
	}
}

// ComputeV3AddressFromPublicKey computes the v3 onion address of an ed25519 public key.
func ComputeV3AddressFromPublicKey(pubkey []byte) (string, error) {
	if len(pubkey) != 32 {
		return "", ErrInvalidOnionAddress
	}

	checksum := computeV3Checksum(pubkey, OnionV3Version)

	addressData := make([]byte, 35)
	copy(addressData[:32], pubkey)
	copy(addressData[32:34], checksum)
	addressData[34] = OnionV3Version

	encoded := base32.StdEncoding.EncodeToString(addressData)
	return strings.ToLower(encoded) + OnionSuffix, nil
}
