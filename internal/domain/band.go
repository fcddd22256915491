package domain

type ConfidenceBand string

const (
	BandUncertain   ConfidenceBand = "uncertain"
	BandDeveloping  ConfidenceBand = "developing"
	BandEstablished ConfidenceBand = "established"
	BandProven      ConfidenceBand = "proven"
)

// Bands lists the confidence bands from least to most certain.
var Bands = []ConfidenceBand{BandUncertain, BandDeveloping, BandEstablished, BandProven}

// Rank returns the position of b in Bands, or -1 when b is unknown.
func (b ConfidenceBand) Rank() int {
	for i, band := range Bands {
		if band == b {
			return i
		}
	}
	return -1
}

func (b ConfidenceBand) Valid() bool {
	return b.Rank() >= 0
}
