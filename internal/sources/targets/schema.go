package targets

// TargetsConfig represents the top-level structure of targets.yaml.
// Targets are grouped by category key (publication, community, ...).
type TargetsConfig map[string][]TargetProps

// TargetProps contains the properties of a single outreach target.
type TargetProps struct {
	Name         string   `yaml:"name"`
	Website      string   `yaml:"website"`
	Priority     int      `yaml:"priority,omitempty"`
	ContactPages []string `yaml:"contact_pages,omitempty"`
	Emails       []string `yaml:"emails,omitempty"`
}
