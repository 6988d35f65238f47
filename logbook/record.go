package logbook

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/use-agent/bestip/models"
)

// DisplayZone is the fixed offset of every persisted timestamp, independent
// of the host timezone.
var DisplayZone = time.FixedZone("UTC-8", -8*60*60)

const (
	timestampLayout = "2006-01-02 15:04:05"
	zoneSuffix      = " UTC-8"

	recordTitle = "# CF官方列表优选IP - "
	fileTitle   = "# CloudFlare 优选IP 结果日志"
)

var separator = "# " + strings.Repeat("=", 50)

// headerPattern matches a record header line and captures its timestamp.
// The file-level header block never matches it.
var headerPattern = regexp.MustCompile(`(?m)^# CF官方列表优选IP - (\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}) UTC-8[ \t\r]*$`)

// FormatTimestamp renders t in the display zone, with the zone suffix.
func FormatTimestamp(t time.Time) string {
	return t.In(DisplayZone).Format(timestampLayout) + zoneSuffix
}

// ParseHeaderTime parses a captured header timestamp (without suffix) as a
// display-zone wall clock and returns the absolute instant.
func ParseHeaderTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(timestampLayout, strings.TrimSuffix(s, zoneSuffix), DisplayZone)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse record timestamp %q: %w", s, err)
	}
	return t, nil
}

// ScanHeaders returns every record header timestamp in content, in file
// order. File order is chronological since records are only ever appended.
func ScanHeaders(content string) []string {
	matches := headerPattern.FindAllStringSubmatch(content, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// NewRunToken returns a short random token distinguishing this run's
// records from earlier runs with identical labels.
func NewRunToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// InsertToken places token immediately after every occurrence of marker.
// The body is returned unchanged when marker is empty or absent.
func InsertToken(body, marker, token string) string {
	if marker == "" || token == "" {
		return body
	}
	return strings.ReplaceAll(body, marker, marker+token)
}

// fileHeader is written once at the top of a freshly rotated file.
func fileHeader(now time.Time, rotateAfterDays int) string {
	var b strings.Builder
	b.WriteString(fileTitle + "\n")
	fmt.Fprintf(&b, "# 轮换策略: 最新记录距今满%d天时整体覆盖重写, 否则追加\n", rotateAfterDays)
	fmt.Fprintf(&b, "# 文件创建时间: %s\n", FormatTimestamp(now))
	return b.String()
}

// renderRecord formats one record. The body is written as extracted, apart
// from the inserted run token.
func renderRecord(now time.Time, bundle models.ResultBundle, marker, token string) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(recordTitle + FormatTimestamp(now) + "\n")
	fmt.Fprintf(&b, "# 统计信息: %s\n", singleLine(bundle.Stats))
	fmt.Fprintf(&b, "# 测试进度: %s\n", singleLine(bundle.Progress))
	b.WriteString(separator + "\n")
	b.WriteString(InsertToken(bundle.Body, marker, token))
	if !strings.HasSuffix(bundle.Body, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(separator + "\n")
	return b.String()
}

// singleLine collapses runs of whitespace, newlines included, to one space
// so an annotation never spills past its "# " line.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
