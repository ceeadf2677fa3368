// Package email provides the address helpers used by eligibility checks.
package email

import "strings"

// Domain extracts the domain part of an address, lowercased. Returns "" when
// the address has no "@" or nothing after it. The last "@" wins so quoted
// local parts containing "@" do not confuse the match.
func Domain(address string) string {
	at := strings.LastIndexByte(address, '@')
	if at < 0 || at == len(address)-1 {
		return ""
	}
	return strings.ToLower(address[at+1:])
}

// MatchesDomain reports whether the address belongs to domain exactly.
// The comparison is case-insensitive and exact: "a@mit.edu" matches
// "mit.edu" but "a@mit.edu.co" does not.
func MatchesDomain(address, domain string) bool {
	d := Domain(address)
	return d != "" && d == strings.ToLower(strings.TrimSpace(domain))
}
