package core

// MobilityPeak is an ion mobility, intensity pair.
type MobilityPeak struct {
	Mobility  float64
	Intensity float64
}

// Pos returns the mobility.
func (p MobilityPeak) Pos() float64 { return p.Mobility }

// Height returns the intensity.
func (p MobilityPeak) Height() float64 { return p.Intensity }

// Mobilogram is a mobility-ordered peak container recorded at one retention time.
type Mobilogram struct {
	Container[MobilityPeak]

	RetentionTime float64
	MobilityUnit  string
}

// MobilityBegin returns the index of the first peak with mobility >= mobility.
func (m *Mobilogram) MobilityBegin(mobility float64) int { return m.PosBegin(mobility) }

// MobilityEnd returns the index of the first peak with mobility > mobility.
func (m *Mobilogram) MobilityEnd(mobility float64) int { return m.PosEnd(mobility) }
