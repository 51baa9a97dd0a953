package mrz

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kakdoma/internal/domain"
)

const (
	td3Line1 = "P<UTOERIKSSON<<ANNA<MARIA<<<<<<<<<<<<<<<<<<<"
	td3Line2 = "L898902C36UTO7408122F1204159ZE184226B<<<<<10"

	td1Line1 = "I<UTOD231458907<<<<<<<<<<<<<<<"
	td1Line2 = "7408122F1204159UTO<<<<<<<<<<<6"
	td1Line3 = "ERIKSSON<<ANNA<MARIA<<<<<<<<<<"
)

var testNow = time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

func TestChecksum(t *testing.T) {
	assert.Equal(t, 6, Checksum("L898902C3"))
	assert.Equal(t, 2, Checksum("740812"))
	assert.Equal(t, 9, Checksum("120415"))
	assert.Equal(t, 0, Checksum("<<<<<<"))
}

func TestValidateCheckDigit(t *testing.T) {
	assert.True(t, ValidateCheckDigit("L898902C3", '6'))
	assert.False(t, ValidateCheckDigit("L898902C3", '5'))
	// a filler or letter in the check position is never valid
	assert.False(t, ValidateCheckDigit("740812", '<'))
	assert.False(t, ValidateCheckDigit("740812", 'A'))
}

func TestParseTD3(t *testing.T) {
	rec := Parse([]string{td3Line1, td3Line2}, testNow)

	require.Equal(t, domain.MRZFormatTD3, rec.Format)
	assert.Equal(t, "P", rec.DocumentType)
	assert.Equal(t, "UTO", rec.IssuingCountry)
	assert.Equal(t, "ERIKSSON", rec.Surname)
	assert.Equal(t, "ANNA MARIA", rec.GivenNames)
	assert.Equal(t, "UTO", rec.Nationality)
	assert.Equal(t, "740812", rec.BirthDate)
	assert.Equal(t, "F", rec.Sex)
	assert.Equal(t, "120415", rec.ExpiryDate)

	assert.True(t, rec.Checks.DocumentNumber)
	assert.True(t, rec.Checks.BirthDate)
	assert.True(t, rec.Checks.ExpiryDate)
	assert.True(t, rec.Checks.Composite)
	assert.True(t, rec.ChecksumOK)
	assert.InDelta(t, 1.0, rec.Confidence, 1e-9)

	assert.NotEmpty(t, rec.DocumentHash)
	assert.NotContains(t, rec.DocumentHash, "L898902C3")
	assert.Len(t, rec.MRZHash, 16)
}

func TestParseTD3CorruptedDocumentCheckDigit(t *testing.T) {
	corrupted := td3Line2[:9] + "5" + td3Line2[10:]
	rec := Parse([]string{td3Line1, corrupted}, testNow)

	require.Equal(t, domain.MRZFormatTD3, rec.Format)
	assert.False(t, rec.Checks.DocumentNumber)
	assert.True(t, rec.Checks.BirthDate)
	assert.True(t, rec.Checks.ExpiryDate)
	// the composite covers the document check digit, so it fails too
	assert.False(t, rec.Checks.Composite)
	assert.False(t, rec.ChecksumOK)
	assert.InDelta(t, 0.4, rec.Confidence, 1e-9)
}

func TestParseTD3ConfusedDigitsRecovered(t *testing.T) {
	// OCR read the zero in the birth date as the letter O
	confused := td3Line2[:13] + "74O812" + td3Line2[19:]
	rec := Parse([]string{td3Line1, confused}, testNow)

	require.Equal(t, domain.MRZFormatTD3, rec.Format)
	assert.Equal(t, "740812", rec.BirthDate)
	assert.True(t, rec.Checks.BirthDate)
	assert.True(t, rec.Checks.Composite)
	assert.True(t, rec.ChecksumOK)
}

func TestParseTD3ConfusedDocumentNumberRecovered(t *testing.T) {
	// OCR read the zero in the document number as the letter O
	confused := td3Line2[:5] + "O" + td3Line2[6:]
	rec := Parse([]string{td3Line1, confused}, testNow)

	require.Equal(t, domain.MRZFormatTD3, rec.Format)
	assert.True(t, rec.Checks.DocumentNumber)
	assert.True(t, rec.Checks.Composite)
	assert.True(t, rec.ChecksumOK)
	assert.InDelta(t, 1.0, rec.Confidence, 1e-9)
}

func TestParseTD1(t *testing.T) {
	rec := Parse([]string{td1Line1, td1Line2, td1Line3}, testNow)

	require.Equal(t, domain.MRZFormatTD1, rec.Format)
	assert.Equal(t, "I", rec.DocumentType)
	assert.Equal(t, "UTO", rec.IssuingCountry)
	assert.Equal(t, "ERIKSSON", rec.Surname)
	assert.Equal(t, "ANNA MARIA", rec.GivenNames)
	assert.Equal(t, "UTO", rec.Nationality)
	assert.Equal(t, "740812", rec.BirthDate)
	assert.Equal(t, "F", rec.Sex)
	assert.Equal(t, "120415", rec.ExpiryDate)
	assert.True(t, rec.ChecksumOK)
	assert.InDelta(t, 1.0, rec.Confidence, 1e-9)
}

func TestParseTextFindsZoneInNoise(t *testing.T) {
	text := strings.Join([]string{
		"REPUBLIC OF UTOPIA",
		"Passport / Passeport",
		"",
		td3Line1,
		td3Line2,
		"some trailing footer",
	}, "\n")

	rec := ParseText(text, testNow)
	require.Equal(t, domain.MRZFormatTD3, rec.Format)
	assert.Equal(t, "ERIKSSON", rec.Surname)
	assert.True(t, rec.ChecksumOK)
}

func TestParseTextPadsDroppedTrailingFillers(t *testing.T) {
	// OCR dropped the trailing fillers of the name line
	text := strings.TrimRight(td3Line1, "<") + "<<<<<<<<<<<<<<<<<" + "\n" + td3Line2
	rec := ParseText(text, testNow)

	require.Equal(t, domain.MRZFormatTD3, rec.Format)
	assert.Equal(t, "ERIKSSON", rec.Surname)
	assert.Equal(t, "ANNA MARIA", rec.GivenNames)
}

func TestParseNoZone(t *testing.T) {
	rec := ParseText("an ordinary letter about nothing in particular", testNow)

	assert.Equal(t, domain.MRZRecord{}, rec)
	assert.Zero(t, rec.Confidence)
	assert.False(t, rec.ChecksumOK)
}

func TestDecodeDate(t *testing.T) {
	birth, ok := DecodeDate("740812", testNow)
	require.True(t, ok)
	assert.Equal(t, 1974, birth.Year())

	expiry, ok := DecodeDate("120415", testNow)
	require.True(t, ok)
	assert.Equal(t, 2012, expiry.Year())

	_, ok = DecodeDate("99", testNow)
	assert.False(t, ok)
	_, ok = DecodeDate("99XX99", testNow)
	assert.False(t, ok)
}

func TestDecodeExpiryDateStaysInCurrentCentury(t *testing.T) {
	expiry, ok := DecodeExpiryDate("310101")
	require.True(t, ok)
	assert.Equal(t, 2031, expiry.Year())
}

func TestDocumentHashStableAcrossReads(t *testing.T) {
	a := Parse([]string{td3Line1, td3Line2}, testNow)
	b := ParseText("header\n"+td3Line1+"\n"+td3Line2, testNow)
	assert.Equal(t, a.DocumentHash, b.DocumentHash)
	assert.Equal(t, a.MRZHash, b.MRZHash)
}
