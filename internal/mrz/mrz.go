package mrz

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"kakdoma/internal/domain"
)

const (
	td3LineLen = 44
	td1LineLen = 30

	// Lines shorter than these after normalization are not treated as MRZ
	// candidates. OCR routinely drops a few trailing fillers, so the lower
	// bounds leave slack below the nominal widths.
	td3MinLen = 40
	td1MinLen = 26
)

// checksumWeights is the ICAO 9303 repeating weight sequence.
var checksumWeights = [3]int{7, 3, 1}

// numericConfusions maps letters that OCR commonly misreads in digit-only
// fields back to the intended digit. Applied to numeric sub-fields only;
// alphabetic fields keep their letters.
var numericConfusions = map[byte]byte{
	'O': '0',
	'Q': '0',
	'I': '1',
	'L': '1',
	'B': '8',
	'S': '5',
	'G': '6',
}

// charValue returns the checksum value of a single MRZ character:
// digits map to themselves, A-Z to 10-35, the filler to 0.
func charValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	default:
		return 0
	}
}

// Checksum computes the 7-3-1 weighted mod-10 check digit of value.
func Checksum(value string) int {
	sum := 0
	for i := 0; i < len(value); i++ {
		sum += charValue(value[i]) * checksumWeights[i%3]
	}
	return sum % 10
}

// ValidateCheckDigit reports whether check is the correct check digit for
// value. A non-digit check character always fails.
func ValidateCheckDigit(value string, check byte) bool {
	if check < '0' || check > '9' {
		return false
	}
	return Checksum(value) == int(check-'0')
}

// fixNumeric rewrites commonly confused letters to digits. Only ever applied
// to fields that are numeric by layout (dates, check-digit inputs).
func fixNumeric(s string) string {
	b := []byte(s)
	for i, c := range b {
		if d, ok := numericConfusions[c]; ok {
			b[i] = d
		}
	}
	return string(b)
}

// normalizeLine uppercases, strips everything outside [A-Z0-9<], and returns
// the result without padding. Padding to the layout width happens once the
// layout is known.
func normalizeLine(line string) string {
	line = strings.ToUpper(strings.TrimSpace(line))
	var b strings.Builder
	b.Grow(len(line))
	for i := 0; i < len(line); i++ {
		c := line[i]
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '<' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func padLine(line string, width int) string {
	if len(line) >= width {
		return line[:width]
	}
	return line + strings.Repeat("<", width-len(line))
}

// cleanName turns an MRZ name fragment into a display name: fillers become
// single spaces, runs collapse, edges are trimmed.
func cleanName(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "<", " ")), " ")
}

// splitNames splits an MRZ name field into surname and given names at the
// double filler.
func splitNames(field string) (surname, given string) {
	parts := strings.SplitN(field, "<<", 2)
	surname = cleanName(parts[0])
	if len(parts) == 2 {
		given = cleanName(parts[1])
	}
	return surname, given
}

func hashDocumentNumber(number string) string {
	sum := sha256.Sum256([]byte(number))
	return hex.EncodeToString(sum[:])
}

func hashLines(lines []string) string {
	sum := sha256.Sum256([]byte(strings.Join(lines, "")))
	return hex.EncodeToString(sum[:])[:16]
}

// DecodeDate expands a YYMMDD birth date to a full date. Two-digit years
// above the current two-digit year are placed in the previous century, which
// is wrong for people born near a century boundary; callers that care keep
// the raw YYMMDD string alongside.
func DecodeDate(yymmdd string, now time.Time) (time.Time, bool) {
	t, ok := parseYYMMDD(yymmdd)
	if !ok {
		return time.Time{}, false
	}
	if t.Year()%100 > now.Year()%100 {
		t = t.AddDate(-100, 0, 0)
	}
	return t, true
}

// DecodeExpiryDate expands a YYMMDD expiry date. Expiry years always sit in
// the document's own century, so no backdating heuristic applies.
func DecodeExpiryDate(yymmdd string) (time.Time, bool) {
	return parseYYMMDD(yymmdd)
}

func parseYYMMDD(yymmdd string) (time.Time, bool) {
	if len(yymmdd) != 6 {
		return time.Time{}, false
	}
	t, err := time.Parse("060102", fixNumeric(yymmdd))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseText extracts and parses the first machine-readable zone found in
// free-form OCR text. Text with no recognizable zone yields a zero-confidence
// record with no checks set; that is a normal outcome, not an error.
func ParseText(text string, now time.Time) domain.MRZRecord {
	var lines []string
	for _, raw := range strings.Split(text, "\n") {
		if n := normalizeLine(raw); n != "" {
			lines = append(lines, n)
		}
	}
	return Parse(lines, now)
}

// Parse scans normalized candidate lines for a TD3 pair or a TD1 triple and
// parses the first match.
func Parse(lines []string, now time.Time) domain.MRZRecord {
	for i := 0; i+1 < len(lines); i++ {
		if isTD3Line(lines[i]) && isTD3Line(lines[i+1]) {
			return parseTD3(padLine(lines[i], td3LineLen), padLine(lines[i+1], td3LineLen))
		}
	}
	for i := 0; i+2 < len(lines); i++ {
		if isTD1Line(lines[i]) && isTD1Line(lines[i+1]) && isTD1Line(lines[i+2]) {
			return parseTD1(
				padLine(lines[i], td1LineLen),
				padLine(lines[i+1], td1LineLen),
				padLine(lines[i+2], td1LineLen),
			)
		}
	}
	return domain.MRZRecord{}
}

func isTD3Line(line string) bool {
	return len(line) >= td3MinLen && len(line) <= td3LineLen
}

func isTD1Line(line string) bool {
	return len(line) >= td1MinLen && len(line) <= td1LineLen
}

func parseTD3(l1, l2 string) domain.MRZRecord {
	surname, given := splitNames(l1[5:])

	docNumber := l2[0:9]
	birth := fixNumeric(l2[13:19])
	expiry := fixNumeric(l2[21:27])

	// The document number is validated confusion-corrected too; the record
	// and its hash keep the raw value.
	checks := domain.MRZChecks{
		DocumentNumber: ValidateCheckDigit(fixNumeric(docNumber), l2[9]),
		BirthDate:      ValidateCheckDigit(birth, l2[19]),
		ExpiryDate:     ValidateCheckDigit(expiry, l2[27]),
	}

	// Composite covers document number, birth, expiry plus their check
	// digits and the personal-number field, evaluated over the
	// confusion-corrected line.
	corrected := fixNumeric(l2[0:10]) + l2[10:13] + birth + l2[19:21] + expiry + l2[27:]
	checks.Composite = ValidateCheckDigit(corrected[0:10]+corrected[13:20]+corrected[21:43], corrected[43])

	confidence := 0.0
	if checks.DocumentNumber {
		confidence += 0.2
	}
	if checks.BirthDate {
		confidence += 0.2
	}
	if checks.ExpiryDate {
		confidence += 0.2
	}
	if checks.Composite {
		confidence += 0.4
	}

	return domain.MRZRecord{
		Format:         domain.MRZFormatTD3,
		DocumentType:   strings.Trim(l1[0:2], "<"),
		IssuingCountry: strings.Trim(l1[2:5], "<"),
		Surname:        surname,
		GivenNames:     given,
		Nationality:    strings.Trim(l2[10:13], "<"),
		BirthDate:      birth,
		Sex:            sexField(l2[20]),
		ExpiryDate:     expiry,
		DocumentHash:   hashDocumentNumber(strings.Trim(docNumber, "<")),
		MRZHash:        hashLines([]string{l1, l2}),
		Checks:         checks,
		ChecksumOK:     checks.DocumentNumber && checks.BirthDate && checks.ExpiryDate && checks.Composite,
		Confidence:     confidence,
	}
}

func parseTD1(l1, l2, l3 string) domain.MRZRecord {
	surname, given := splitNames(l3)

	docNumber := l1[5:14]
	birth := fixNumeric(l2[0:6])
	expiry := fixNumeric(l2[8:14])

	checks := domain.MRZChecks{
		DocumentNumber: ValidateCheckDigit(docNumber, l1[14]),
		BirthDate:      ValidateCheckDigit(birth, l2[6]),
		ExpiryDate:     ValidateCheckDigit(expiry, l2[14]),
	}

	confidence := 0.0
	if checks.DocumentNumber {
		confidence += 1.0 / 3
	}
	if checks.BirthDate {
		confidence += 1.0 / 3
	}
	if checks.ExpiryDate {
		confidence += 1.0 / 3
	}
	if checks.DocumentNumber && checks.BirthDate && checks.ExpiryDate {
		confidence = 1.0
	}

	return domain.MRZRecord{
		Format:         domain.MRZFormatTD1,
		DocumentType:   strings.Trim(l1[0:2], "<"),
		IssuingCountry: strings.Trim(l1[2:5], "<"),
		Surname:        surname,
		GivenNames:     given,
		Nationality:    strings.Trim(l2[15:18], "<"),
		BirthDate:      birth,
		Sex:            sexField(l2[7]),
		ExpiryDate:     expiry,
		DocumentHash:   hashDocumentNumber(strings.Trim(docNumber, "<")),
		MRZHash:        hashLines([]string{l1, l2, l3}),
		Checks:         checks,
		ChecksumOK:     checks.DocumentNumber && checks.BirthDate && checks.ExpiryDate,
		Confidence:     confidence,
	}
}

func sexField(c byte) string {
	if c == '<' {
		return ""
	}
	return string(c)
}
