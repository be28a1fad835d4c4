package signer

import "time"

// SigningTime is a UTC instant with both SigV4 renderings computed once, so
// every stage of a signature sees the same clock reading.
type SigningTime struct {
	time.Time
	timeFormat      string
	shortTimeFormat string
}

// NewSigningTime captures t in UTC with both SigV4 date layouts.
func NewSigningTime(t time.Time) SigningTime {
	t = t.UTC()
	return SigningTime{
		Time:            t,
		timeFormat:      t.Format(TimeFormat),
		shortTimeFormat: t.Format(ShortTimeFormat),
	}
}

// TimeFormat returns the X-Amz-Date value, e.g. 20150830T123600Z.
func (st SigningTime) TimeFormat() string { return st.timeFormat }

// ShortTimeFormat returns the scope date, e.g. 20150830.
func (st SigningTime) ShortTimeFormat() string { return st.shortTimeFormat }
