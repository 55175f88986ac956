package domain

// SwapModelOption describes one downloadable model artifact preset.
// Mirrors are consulted in order; the first full download wins.
type SwapModelOption struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	FileName    string   `json:"fileName"`
	Mirrors     []string `json:"mirrors"`
	SizeLabel   string   `json:"sizeLabel,omitempty"`
	Description string   `json:"description,omitempty"`
	Downloaded  bool     `json:"downloaded"`
	LocalPath   string   `json:"localPath,omitempty"`
}
