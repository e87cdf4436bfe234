package domain

type Operation string

const (
	OperationDelete       Operation = "DELETE"
	OperationUpdate       Operation = "UPDATE"
	OperationSetSpace     Operation = "SET_SPACE"
	OperationSetProject   Operation = "SET_PROJECT"
	OperationAddSample    Operation = "ADD_SAMPLE"
	OperationAddDataSet   Operation = "ADD_DATA_SET"
	OperationAddComponent Operation = "ADD_COMPONENT"
)

// FreezeFlags block classes of mutation on an entity. Flags are only ever set;
// there is no unfreeze.
type FreezeFlags struct {
	Frozen               bool `json:"frozen"`
	FrozenForProjects    bool `json:"frozen_for_projects"`
	FrozenForExperiments bool `json:"frozen_for_experiments"`
	FrozenForSamples     bool `json:"frozen_for_samples"`
	FrozenForDataSets    bool `json:"frozen_for_data_sets"`
	FrozenForComponents  bool `json:"frozen_for_components"`
}

// Merge ORs other into f.
func (f FreezeFlags) Merge(other FreezeFlags) FreezeFlags {
	return FreezeFlags{
		Frozen:               f.Frozen || other.Frozen,
		FrozenForProjects:    f.FrozenForProjects || other.FrozenForProjects,
		FrozenForExperiments: f.FrozenForExperiments || other.FrozenForExperiments,
		FrozenForSamples:     f.FrozenForSamples || other.FrozenForSamples,
		FrozenForDataSets:    f.FrozenForDataSets || other.FrozenForDataSets,
		FrozenForComponents:  f.FrozenForComponents || other.FrozenForComponents,
	}
}

func (f FreezeFlags) anyScoped() bool {
	return f.FrozenForProjects || f.FrozenForExperiments || f.FrozenForSamples ||
		f.FrozenForDataSets || f.FrozenForComponents
}

// ValidateFor checks that the flags are meaningful for an entity kind and that
// scoped flags are only set together with Frozen.
func (f FreezeFlags) ValidateFor(k EntityKind) error {
	if f.anyScoped() && !f.Frozen {
		return NewValidationError("freeze flags for related objects require the %s itself to be frozen", k.Label())
	}
	type flag struct {
		set   bool
		name  string
		kinds []EntityKind
	}
	flags := []flag{
		{f.FrozenForProjects, "frozen_for_projects", []EntityKind{EntityKindSpace}},
		{f.FrozenForExperiments, "frozen_for_experiments", []EntityKind{EntityKindProject}},
		{f.FrozenForSamples, "frozen_for_samples", []EntityKind{EntityKindSpace, EntityKindProject, EntityKindExperiment}},
		{f.FrozenForDataSets, "frozen_for_data_sets", []EntityKind{EntityKindExperiment, EntityKindSample}},
		{f.FrozenForComponents, "frozen_for_components", []EntityKind{EntityKindSample, EntityKindDataSet}},
	}
	for _, fl := range flags {
		if fl.set && !containsKind(fl.kinds, k) {
			return NewValidationError("%s cannot be set on a %s", fl.name, k.Label())
		}
	}
	return nil
}

// CheckMutation applies the freeze policy to a mutation of target. subject is
// the entity being attached to target and may be nil for DELETE and UPDATE.
// It is a pure check.
func CheckMutation(target *Entity, op Operation, subject *Entity) error {
	if target == nil {
		return nil
	}
	f := target.Freeze
	blocked := false

	switch op {
	case OperationDelete, OperationUpdate:
		blocked = f.Frozen
	case OperationSetSpace:
		if target.Kind == EntityKindSpace && subject != nil {
			switch subject.Kind {
			case EntityKindProject:
				blocked = f.FrozenForProjects
			case EntityKindSample:
				blocked = f.FrozenForSamples
			}
		}
	case OperationSetProject:
		if target.Kind == EntityKindProject && subject != nil {
			switch subject.Kind {
			case EntityKindExperiment:
				blocked = f.FrozenForExperiments
			case EntityKindSample:
				blocked = f.FrozenForSamples
			}
		}
	case OperationAddSample:
		blocked = target.Kind == EntityKindExperiment && f.FrozenForSamples
	case OperationAddDataSet:
		blocked = (target.Kind == EntityKindExperiment || target.Kind == EntityKindSample) && f.FrozenForDataSets
	case OperationAddComponent:
		blocked = (target.Kind == EntityKindSample || target.Kind == EntityKindDataSet) && f.FrozenForComponents
	}

	if !blocked {
		return nil
	}
	err := &FrozenError{
		EntityID:   target.ID,
		EntityKind: target.Kind,
		EntityCode: target.Code,
		Operation:  op,
	}
	if subject != nil {
		err.SubjectKind = subject.Kind
		err.SubjectCode = subject.Code
	}
	return err
}

func containsKind(kinds []EntityKind, k EntityKind) bool {
	for _, candidate := range kinds {
		if candidate == k {
			return true
		}
	}
	return false
}
