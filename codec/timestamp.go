package codec

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	smithytime "github.com/aws/smithy-go/time"
	"github.com/gurre/awscore/protocol"
	"github.com/gurre/awscore/shape"
)

// ISO8601Layout always carries millisecond precision.
const ISO8601Layout = "2006-01-02T15:04:05.000Z"

// TimestampFormatFor returns the timestamp form a protocol uses at a wire
// location. Headers carry HTTP dates, query parameters (including the Query
// protocol's form body) carry epoch seconds and XML/JSON documents carry
// ISO-8601.
func TimestampFormatFor(p protocol.Protocol, loc shape.Location) shape.TimestampFormat {
	switch loc {
	case shape.Header:
		return shape.HTTPDate
	case shape.QueryString:
		return shape.EpochSeconds
	case shape.Body:
		if p == protocol.Query {
			return shape.EpochSeconds
		}
	}
	return shape.ISO8601
}

func resolveFormat(ref shape.TypeRef, p protocol.Protocol, loc shape.Location) shape.TimestampFormat {
	if ref.TimestampFormat != shape.DefaultTimestampFormat {
		return ref.TimestampFormat
	}
	return TimestampFormatFor(p, loc)
}

// FormatTimestamp renders t in the given form. Precision below one
// millisecond is truncated; HTTP dates carry whole seconds.
func FormatTimestamp(t time.Time, f shape.TimestampFormat) string {
	switch f {
	case shape.HTTPDate:
		return smithytime.FormatHTTPDate(t)
	case shape.EpochSeconds:
		return formatEpochSeconds(t)
	}
	return t.UTC().Format(ISO8601Layout)
}

// ParseTimestamp parses s, trying the expected form first and then the other
// two. Services are not always consistent about the form they send back.
func ParseTimestamp(s string, f shape.TimestampFormat) (time.Time, error) {
	s = strings.TrimSpace(s)
	order := []shape.TimestampFormat{shape.ISO8601, shape.HTTPDate, shape.EpochSeconds}
	switch f {
	case shape.HTTPDate:
		order = []shape.TimestampFormat{shape.HTTPDate, shape.ISO8601, shape.EpochSeconds}
	case shape.EpochSeconds:
		order = []shape.TimestampFormat{shape.EpochSeconds, shape.ISO8601, shape.HTTPDate}
	}

	var firstErr error
	for _, candidate := range order {
		var (
			t   time.Time
			err error
		)
		switch candidate {
		case shape.ISO8601:
			t, err = smithytime.ParseDateTime(s)
		case shape.HTTPDate:
			t, err = smithytime.ParseHTTPDate(s)
		case shape.EpochSeconds:
			t, err = parseEpochSeconds(s)
		}
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

func formatEpochSeconds(t time.Time) string {
	ms := t.UnixMilli()
	sign := ""
	if ms < 0 {
		sign = "-"
		ms = -ms
	}
	secs, frac := ms/1000, ms%1000
	if frac == 0 {
		return sign + strconv.FormatInt(secs, 10)
	}
	return fmt.Sprintf("%s%d.%03d", sign, secs, frac)
}

// parseEpochSeconds reads the fraction textually; going through float64
// would turn .590 into 589999914ns.
func parseEpochSeconds(s string) (time.Time, error) {
	if strings.ContainsAny(s, "eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid epoch seconds %q", s)
		}
		return smithytime.ParseEpochSeconds(f), nil
	}

	neg := strings.HasPrefix(s, "-")
	whole, frac, _ := strings.Cut(strings.TrimPrefix(s, "-"), ".")
	if whole == "" || strings.HasPrefix(whole, "+") {
		return time.Time{}, fmt.Errorf("invalid epoch seconds %q", s)
	}
	secs, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch seconds %q", s)
	}
	var nanos int64
	if frac != "" {
		if len(frac) > 9 {
			frac = frac[:9]
		}
		n, err := strconv.ParseUint(frac, 10, 32)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid epoch seconds %q", s)
		}
		nanos = int64(n)
		for i := len(frac); i < 9; i++ {
			nanos *= 10
		}
	}
	if neg {
		secs, nanos = -secs, -nanos
	}
	return time.Unix(secs, nanos).UTC(), nil
}
