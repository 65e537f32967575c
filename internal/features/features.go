// Package features implements the Feature Extractor (C2): a fixed-width,
// stably-ordered numeric feature vector computed purely from a
// NormalizedURL. Grounded on the reference service's go_agent.go
// (extractFeatures/calculateEntropy/assessTLDRisk) and content_analyzer.go
// (keyword/obfuscation/encoding checks), expanded into the lexical /
// structural / token / TLD / host-class / encoding categories.
package features

import (
	"math"
	"net"
	"net/url"
	"strings"

	"github.com/cyberzilla/urlsentinel/internal/models"
)

// schema is the ordered, frozen list of feature names. Its length and order
// must never change without a version bump, since it mirrors the
// training-time schema the model expects.
var schema = buildSchema()

// Names returns the frozen feature name ordering.
func Names() []string {
	out := make([]string, len(schema))
	copy(out, schema)
	return out
}

var suspiciousTokens = []string{
	"login", "secure", "verify", "update", "account", "bank", "paypal", "wallet", "confirm",
	"signin", "security", "password", "unlock",
}
var highAbuseTLDs = map[string]bool{
	"tk": true, "ml": true, "ga": true, "cf": true, "gq": true,
	"xyz": true, "top": true, "club": true, "win": true, "bid": true,
}
var countryCodeTLDs = map[string]bool{
	"uk": true, "de": true, "fr": true, "jp": true, "cn": true, "ru": true,
	"au": true, "br": true, "in": true, "nl": true, "se": true, "no": true,
	"fi": true, "us": true, "ca": true,
}

// Extract computes the fixed-width FeatureVector for a normalized URL. The
// output is reproducible: calling it twice on the same input yields a
// byte-identical result.
func Extract(n models.NormalizedURL) models.FeatureVector {
	full := n.String()
	host := n.Host
	path := n.Path
	query := n.Query
	labels := strings.Split(host, ".")
	tld := ""
	if len(labels) > 1 {
		tld = labels[len(labels)-1]
	}

	values := map[string]float64{}

	// Lexical
	values["url_length"] = float64(len(full))
	values["host_length"] = float64(len(host))
	values["path_length"] = float64(len(path))
	values["query_length"] = float64(len(query))
	digits, letters, special := countClasses(full)
	total := float64(max(len(full), 1))
	values["digit_ratio"] = float64(digits) / total
	values["letter_ratio"] = float64(letters) / total
	values["special_char_count"] = float64(special)
	values["max_consecutive_digits"] = float64(longestDigitRun(full))
	values["host_entropy"] = entropy(host)
	values["longest_label_length"] = float64(longestLabel(labels))
	hDigits, hLetters, _ := countClasses(host)
	pDigits, pLetters, _ := countClasses(path)
	qDigits, qLetters, _ := countClasses(query)
	values["digit_ratio_host"] = float64(hDigits) / float64(max(len(host), 1))
	values["letter_ratio_host"] = float64(hLetters) / float64(max(len(host), 1))
	values["digit_ratio_path"] = float64(pDigits) / float64(max(len(path), 1))
	values["letter_ratio_path"] = float64(pLetters) / float64(max(len(path), 1))
	values["digit_ratio_query"] = float64(qDigits) / float64(max(len(query), 1))
	values["letter_ratio_query"] = float64(qLetters) / float64(max(len(query), 1))
	values["uppercase_ratio"] = float64(countUpper(full)) / total
	values["vowel_ratio"] = float64(countVowels(full)) / total
	values["avg_token_length"] = avgTokenLength(full)

	// Structural
	values["num_dots"] = float64(strings.Count(host, "."))
	values["num_slashes"] = float64(strings.Count(full, "/"))
	values["num_hyphens"] = float64(strings.Count(host, "-"))
	values["has_at_symbol"] = boolToFloat(strings.Contains(full, "@"))
	values["num_subdomains"] = float64(max(len(labels)-2, 0))
	values["double_slash_in_path"] = boolToFloat(strings.Contains(path, "//"))
	values["num_equals"] = float64(strings.Count(full, "="))
	values["num_ampersands"] = float64(strings.Count(full, "&"))
	values["num_question_marks"] = float64(strings.Count(full, "?"))
	values["num_underscores"] = float64(strings.Count(full, "_"))
	values["num_plus"] = float64(strings.Count(full, "+"))
	values["path_depth"] = float64(pathDepth(path))
	values["query_param_count"] = float64(queryParamCount(query))
	values["avg_label_length"] = avgLabelLength(labels)
	values["trailing_slash"] = boolToFloat(path != "/" && strings.HasSuffix(path, "/"))
	values["path_is_empty"] = boolToFloat(path == "" || path == "/")

	// Token/keyword presence, per-location
	hostLower, pathLower, queryLower := strings.ToLower(host), strings.ToLower(path), strings.ToLower(query)
	for _, tok := range suspiciousTokens {
		values["token_"+tok+"_in_host"] = boolToFloat(strings.Contains(hostLower, tok))
		values["token_"+tok+"_in_path"] = boolToFloat(strings.Contains(pathLower, tok))
		values["token_"+tok+"_in_query"] = boolToFloat(strings.Contains(queryLower, tok))
	}

	// TLD features
	values["tld_length"] = float64(len(tld))
	values["tld_is_high_abuse"] = boolToFloat(highAbuseTLDs[tld])
	values["tld_is_country_code"] = boolToFloat(countryCodeTLDs[tld])
	values["tld_has_digit"] = boolToFloat(containsDigit(tld))
	values["tld_is_generic"] = boolToFloat(!highAbuseTLDs[tld] && !countryCodeTLDs[tld])
	values["tld_char_entropy"] = entropy(tld)
	values["tld_is_long"] = boolToFloat(len(tld) > 3)

	// Host class
	values["is_ip_literal"] = boolToFloat(n.IsIPLiteral)
	values["is_punycode"] = boolToFloat(n.IsPunycode)
	values["is_homoglyph_candidate"] = boolToFloat(isMixedScript(host))
	values["has_port"] = boolToFloat(n.HasExplicitPort)
	nonstandard := n.HasExplicitPort && n.Port != 80 && n.Port != 443
	values["nonstandard_port"] = boolToFloat(nonstandard)
	if n.HasExplicitPort {
		values["port_value"] = float64(n.Port)
	} else {
		values["port_value"] = -1
	}
	values["has_www_prefix"] = boolToFloat(strings.HasPrefix(hostLower, "www."))
	values["is_localhost"] = boolToFloat(hostLower == "localhost" || strings.HasPrefix(host, "127.") || host == "::1")
	values["is_private_ip"] = boolToFloat(isPrivateIP(host))
	values["has_hyphen_in_host"] = boolToFloat(strings.Contains(host, "-"))
	values["is_single_label_host"] = boolToFloat(len(labels) == 1)

	// Encoding
	values["percent_encoded_count"] = float64(strings.Count(full, "%"))
	values["hex_run_length"] = float64(longestHexRun(full))
	values["base64_like_segment"] = boolToFloat(hasBase64LikeSegment(full))
	values["longest_alpha_run"] = float64(longestAlphaRun(full))
	values["longest_special_run"] = float64(longestSpecialRun(full))
	lowerFull := strings.ToLower(full)
	values["num_percent_encoded_dots"] = float64(strings.Count(lowerFull, "%2e"))
	values["num_percent_encoded_slashes"] = float64(strings.Count(lowerFull, "%2f"))
	values["encoded_char_ratio"] = float64(strings.Count(full, "%")*3) / total
	values["has_null_byte_encoding"] = boolToFloat(strings.Contains(lowerFull, "%00"))

	out := models.FeatureVector{Names: make([]string, len(schema)), Values: make([]float64, len(schema))}
	for i, name := range schema {
		out.Names[i] = name
		v, ok := values[name]
		if !ok {
			v = -1
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		out.Values[i] = v
	}
	return out
}

func buildSchema() []string {
	names := []string{
		"url_length", "host_length", "path_length", "query_length",
		"digit_ratio", "letter_ratio", "special_char_count",
		"max_consecutive_digits", "host_entropy", "longest_label_length",
		"digit_ratio_host", "letter_ratio_host", "digit_ratio_path", "letter_ratio_path",
		"digit_ratio_query", "letter_ratio_query", "uppercase_ratio", "vowel_ratio", "avg_token_length",
		"num_dots", "num_slashes", "num_hyphens", "has_at_symbol",
		"num_subdomains", "double_slash_in_path",
		"num_equals", "num_ampersands", "num_question_marks", "num_underscores", "num_plus",
		"path_depth", "query_param_count", "avg_label_length", "trailing_slash", "path_is_empty",
	}
	for _, tok := range suspiciousTokens {
		names = append(names, "token_"+tok+"_in_host", "token_"+tok+"_in_path", "token_"+tok+"_in_query")
	}
	names = append(names,
		"tld_length", "tld_is_high_abuse", "tld_is_country_code",
		"tld_has_digit", "tld_is_generic", "tld_char_entropy", "tld_is_long",
		"is_ip_literal", "is_punycode", "is_homoglyph_candidate",
		"has_port", "nonstandard_port", "port_value",
		"has_www_prefix", "is_localhost", "is_private_ip", "has_hyphen_in_host", "is_single_label_host",
		"percent_encoded_count", "hex_run_length", "base64_like_segment",
		"longest_alpha_run", "longest_special_run", "num_percent_encoded_dots",
		"num_percent_encoded_slashes", "encoded_char_ratio", "has_null_byte_encoding",
	)
	return names
}

func countClasses(s string) (digits, letters, special int) {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			letters++
		case strings.ContainsRune("!@#$%^&*()_+-=[]{}|;:'\",.<>?/~`", r):
			special++
		}
	}
	return
}

func longestDigitRun(s string) int {
	best, cur := 0, 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			cur++
			if cur > best {
				best = cur
			}
		} else {
			cur = 0
		}
	}
	return best
}

func longestHexRun(s string) int {
	lower := strings.ToLower(s)
	best, cur := 0, 0
	isHex := func(r rune) bool {
		return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')
	}
	for _, r := range lower {
		if isHex(r) {
			cur++
			if cur > best {
				best = cur
			}
		} else {
			cur = 0
		}
	}
	return best
}

func longestAlphaRun(s string) int {
	best, cur := 0, 0
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			cur++
			if cur > best {
				best = cur
			}
		} else {
			cur = 0
		}
	}
	return best
}

func longestSpecialRun(s string) int {
	best, cur := 0, 0
	isAlnum := func(r rune) bool {
		return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
	}
	for _, r := range s {
		if !isAlnum(r) {
			cur++
			if cur > best {
				best = cur
			}
		} else {
			cur = 0
		}
	}
	return best
}

func countUpper(s string) int {
	n := 0
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			n++
		}
	}
	return n
}

func countVowels(s string) int {
	n := 0
	for _, r := range strings.ToLower(s) {
		if strings.ContainsRune("aeiou", r) {
			n++
		}
	}
	return n
}

func avgTokenLength(full string) float64 {
	tokens := strings.FieldsFunc(full, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	})
	if len(tokens) == 0 {
		return 0
	}
	sum := 0
	for _, t := range tokens {
		sum += len(t)
	}
	return float64(sum) / float64(len(tokens))
}

func pathDepth(path string) int {
	segments := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	return len(segments)
}

func queryParamCount(query string) int {
	if query == "" {
		return 0
	}
	return len(strings.Split(query, "&"))
}

func avgLabelLength(labels []string) float64 {
	if len(labels) == 0 {
		return 0
	}
	sum := 0
	for _, l := range labels {
		sum += len(l)
	}
	return float64(sum) / float64(len(labels))
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

func isPrivateIP(host string) bool {
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast()
}

func longestLabel(labels []string) int {
	best := 0
	for _, l := range labels {
		if len(l) > best {
			best = len(l)
		}
	}
	return best
}

// entropy computes the Shannon entropy (base 2) of s, zero for empty input.
func entropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	freq := map[rune]int{}
	for _, r := range s {
		freq[r]++
	}
	n := float64(len(s))
	var h float64
	for _, c := range freq {
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h
}

func isMixedScript(host string) bool {
	for _, label := range strings.Split(host, ".") {
		hasLatin, hasOther := false, false
		for _, r := range label {
			switch {
			case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
				hasLatin = true
			case r > 127:
				hasOther = true
			}
		}
		if hasLatin && hasOther {
			return true
		}
	}
	return false
}

// hasBase64LikeSegment reports whether the URL's query or path contains a
// long run of base64-alphabet characters, a weak indicator of an encoded
// redirect target or payload.
func hasBase64LikeSegment(full string) bool {
	parsed, err := url.Parse(full)
	candidates := []string{full}
	if err == nil {
		candidates = append(candidates, parsed.RawQuery, parsed.Path)
	}
	isB64 := func(r rune) bool {
		return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '+' || r == '/' || r == '='
	}
	for _, c := range candidates {
		run := 0
		for _, r := range c {
			if isB64(r) {
				run++
				if run >= 24 {
					return true
				}
			} else {
				run = 0
			}
		}
	}
	return false
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
