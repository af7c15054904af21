// Package nameparse extracts structured movie properties from release names.
// Detection is substring based and case-insensitive; rules are evaluated in a
// fixed order so longer tokens win over short ambiguous ones.
package nameparse

import (
	"regexp"
	"strconv"
	"strings"
)

// Quality is the resolution tier of a release.
type Quality string

const (
	QualityUnknown Quality = "Unknown"
	Quality480p    Quality = "480p"
	Quality720p    Quality = "720p"
	Quality1080p   Quality = "1080p"
	Quality2160p   Quality = "2160p"
)

// Codec is the video codec family of a release.
type Codec string

const (
	CodecUnknown Codec = "Unknown"
	CodecX264    Codec = "x264"
	CodecX265    Codec = "x265"
	CodecAVC     Codec = "AVC"
	CodecHEVC    Codec = "HEVC"
	CodecXVID    Codec = "XVID"
)

// Source is the capture or distribution source of a release.
type Source string

const (
	SourceUnknown  Source = "Unknown"
	SourceCam      Source = "Cam"
	SourceTelesync Source = "Telesync"
	SourceTelecine Source = "Telecine"
	SourceDVD      Source = "DVD"
	SourceHDTV     Source = "HDTV"
	SourceHDRip    Source = "HDRip"
	SourceWebRip   Source = "WebRip"
	SourceBluRay   Source = "BluRay"
)

// QualityValues lists every known quality tier.
var QualityValues = []Quality{Quality480p, Quality720p, Quality1080p, Quality2160p}

// CodecValues lists every known codec family.
var CodecValues = []Codec{CodecX264, CodecX265, CodecAVC, CodecHEVC, CodecXVID}

// SourceValues lists every known source type.
var SourceValues = []Source{
	SourceCam, SourceTelesync, SourceTelecine, SourceDVD,
	SourceHDTV, SourceHDRip, SourceWebRip, SourceBluRay,
}

var qualityRules = []struct {
	token   string
	quality Quality
}{
	{"480p", Quality480p},
	{"720p", Quality720p},
	{"1080p", Quality1080p},
	{"2160p", Quality2160p},
	{"4k", Quality2160p},
}

var codecRules = []struct {
	token string
	codec Codec
}{
	{"x264", CodecX264},
	{"x265", CodecX265},
	{"h264", CodecAVC},
	{"h265", CodecHEVC},
	{"xvid", CodecXVID},
}

// Source rules run in priority order: the longer tokens must be tested before
// the two-letter fallbacks, and web before bluray so "webrip" is not shadowed.
var sourceRules = []struct {
	tokens []string
	source Source
}{
	{[]string{"cam"}, SourceCam},
	{[]string{"telesync", "hdts"}, SourceTelesync},
	{[]string{"telecine", "hdtc"}, SourceTelecine},
	{[]string{"dvd"}, SourceDVD},
	{[]string{"hdtv", "pdtv"}, SourceHDTV},
	{[]string{"hdrip", "hd-rip"}, SourceHDRip},
	{[]string{"web"}, SourceWebRip},
	{[]string{"bluray", "brrip", "brip"}, SourceBluRay},
	{[]string{"tc"}, SourceTelecine},
	{[]string{"ts"}, SourceTelesync},
}

var (
	imdbPattern = regexp.MustCompile(`(?i)tt\d{7,8}`)
	tmdbPattern = regexp.MustCompile(`\((\d{2,8})\)`)
)

// ParseQuality returns the quality tier found in the name, or QualityUnknown.
func ParseQuality(name string) Quality {
	lower := strings.ToLower(name)
	for _, rule := range qualityRules {
		if strings.Contains(lower, rule.token) {
			return rule.quality
		}
	}
	return QualityUnknown
}

// ParseCodec returns the codec family found in the name, or CodecUnknown.
func ParseCodec(name string) Codec {
	lower := strings.ToLower(name)
	for _, rule := range codecRules {
		if strings.Contains(lower, rule.token) {
			return rule.codec
		}
	}
	return CodecUnknown
}

// ParseSource returns the source type found in the name, or SourceUnknown.
func ParseSource(name string) Source {
	lower := strings.ToLower(name)
	for _, rule := range sourceRules {
		for _, token := range rule.tokens {
			if strings.Contains(lower, token) {
				return rule.source
			}
		}
	}
	return SourceUnknown
}

// ExtractImdb returns the IMDb tt-identifier found in the name, case
// preserved, or the empty string.
func ExtractImdb(name string) string {
	return imdbPattern.FindString(name)
}

// ExtractTmdb returns a parenthesized numeric id from the name, or 0.
// Used when matching library directories back to their metadata record.
func ExtractTmdb(name string) uint64 {
	m := tmdbPattern.FindStringSubmatch(name)
	if len(m) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// ParseQualityValue validates an untrusted quality string.
func ParseQualityValue(s string) (Quality, bool) {
	for _, q := range QualityValues {
		if string(q) == s {
			return q, true
		}
	}
	return QualityUnknown, s == string(QualityUnknown)
}

// ParseCodecValue validates an untrusted codec string.
func ParseCodecValue(s string) (Codec, bool) {
	for _, c := range CodecValues {
		if string(c) == s {
			return c, true
		}
	}
	return CodecUnknown, s == string(CodecUnknown)
}

// ParseSourceValue validates an untrusted source string.
func ParseSourceValue(s string) (Source, bool) {
	for _, src := range SourceValues {
		if string(src) == s {
			return src, true
		}
	}
	return SourceUnknown, s == string(SourceUnknown)
}
