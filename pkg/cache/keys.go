package cache

// Key prefixes, also used as the keyType reported to cache hooks.
const (
	KindModels   = "models"
	KindLayout   = "layout"
	KindArtifact = "artifact"
)

// LayoutKeyOpts are the inputs besides the model that change a layout.
type LayoutKeyOpts struct {
	Mode     string `json:"mode"`
	Params   any    `json:"params"`
	MaxTicks int    `json:"max_ticks"`
}

// ArtifactKeyOpts are the inputs besides the layout that change a
// rendered file.
type ArtifactKeyOpts struct {
	Format   string `json:"format"`
	Detailed bool   `json:"detailed"`
}

// Keyer derives cache keys.
type Keyer interface {
	// ModelsKey is the key of both aggregated models of a packet list.
	ModelsKey(packetsHash string) string

	// LayoutKey is the key of a settled layout of one model.
	LayoutKey(packetsHash string, opts LayoutKeyOpts) string

	// ArtifactKey is the key of a rendered layout.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer hashes every input into the key.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// ModelsKey implements [Keyer].
func (DefaultKeyer) ModelsKey(packetsHash string) string {
	return hashKey(KindModels, packetsHash)
}

// LayoutKey implements [Keyer].
func (DefaultKeyer) LayoutKey(packetsHash string, opts LayoutKeyOpts) string {
	return hashKey(KindLayout, packetsHash, opts)
}

// ArtifactKey implements [Keyer].
func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey(KindArtifact, layoutHash, opts)
}
