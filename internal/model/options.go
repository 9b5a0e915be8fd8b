package model

// Closed value sets of the item attributes. The empty string means "not set".
var (
	SchutzartOptions = []string{"IP Hoch", "IP Niedrig"}
	BWSOptions       = []string{"BWS Ja", "BWS Nein"}
	TypOptions       = []string{"RZ", "SL", "Modul", "Sonstiges"}
	ArtOptions       = []string{"EZB", "EVG"}
	SerieOptions     = []string{
		"Display", "Würfel", "Kompakt", "Kombi", "Spot",
		"Trapez", "Fokus", "SUB", "Sonder",
	}
	MaterialOptions = []string{"Stahl", "Alu", "PC", "Edelstahl", "Sonder"}
)

// Options lists the selectable attribute values together with the known regions.
type Options struct {
	Regions   []Region `json:"regions"`
	Schutzart []string `json:"schutzart"`
	BWS       []string `json:"bws"`
	Typ       []string `json:"typ"`
	Art       []string `json:"art"`
	Serie     []string `json:"serie"`
	Material  []string `json:"material"`
}

// NewOptions builds the option lists for the given regions.
func NewOptions(regions []Region) Options {
	if regions == nil {
		regions = []Region{}
	}
	return Options{
		Regions:   regions,
		Schutzart: SchutzartOptions,
		BWS:       BWSOptions,
		Typ:       TypOptions,
		Art:       ArtOptions,
		Serie:     SerieOptions,
		Material:  MaterialOptions,
	}
}
