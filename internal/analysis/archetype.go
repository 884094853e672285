package analysis

// Archetype names the routine-planning approach a caller selects for a run.
type Archetype string

// The six supported archetypes.
const (
	FoundationBuilder  Archetype = "Foundation Builder"
	TransformationSeek Archetype = "Transformation Seeker"
	SystematicImprover Archetype = "Systematic Improver"
	PeakPerformer      Archetype = "Peak Performer"
	ResilienceRebuild  Archetype = "Resilience Rebuilder"
	ConnectedExplorer  Archetype = "Connected Explorer"
)

// archetypeDescriptions drives both validation and prompt construction.
var archetypeDescriptions = map[Archetype]string{
	FoundationBuilder:  "Simple, sustainable basics for beginners or those rebuilding health habits",
	TransformationSeek: "Ambitious individuals ready for major lifestyle changes and dramatic improvement",
	SystematicImprover: "Detail-oriented, methodical approach with evidence-based, incremental progress",
	PeakPerformer:      "High-achieving individuals seeking elite-level performance optimization",
	ResilienceRebuild:  "Gentle restoration and recovery-focused approach for burnout or stress recovery",
	ConnectedExplorer:  "Social connection and adventure-oriented wellness with community focus",
}

// Archetypes returns the supported archetypes in presentation order.
func Archetypes() []Archetype {
	return []Archetype{
		FoundationBuilder,
		TransformationSeek,
		SystematicImprover,
		PeakPerformer,
		ResilienceRebuild,
		ConnectedExplorer,
	}
}

// ValidArchetype reports whether name matches a supported archetype exactly.
func ValidArchetype(name string) bool {
	_, ok := archetypeDescriptions[Archetype(name)]
	return ok
}

// Description returns the human-readable summary of an archetype, or the
// empty string for an unknown one.
func (a Archetype) Description() string {
	return archetypeDescriptions[a]
}
