package astipipeline

import "fmt"

type MediaType int

const (
	MediaTypeUnknown MediaType = iota
	MediaTypeAudio
	MediaTypeSubtitle
	MediaTypeVideo
)

func (t MediaType) String() string {
	switch t {
	case MediaTypeAudio:
		return "audio"
	case MediaTypeSubtitle:
		return "subtitle"
	case MediaTypeVideo:
		return "video"
	default:
		return "unknown"
	}
}

// symbol is used in worker and metadata names
func (t MediaType) symbol() string {
	switch t {
	case MediaTypeAudio:
		return "a"
	case MediaTypeSubtitle:
		return "s"
	case MediaTypeVideo:
		return "v"
	default:
		return "u"
	}
}

type Rational struct {
	Num, Den int
}

func NewRational(num, den int) Rational {
	return Rational{Num: num, Den: den}
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}
