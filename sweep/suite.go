package sweep

// Suite is a named sweep. Routines, Repeats and Number are optional
// overrides; zero values defer to the caller's defaults.
type Suite struct {
	Name     string
	Configs  []Configuration
	Routines []string
	Repeats  int
	Number   int
}

// SizeDensitySuite crosses axis sizes 2048…16384 (step 2048) with densities
// 0.0…1.0 (step 0.1).
func SizeDensitySuite() Suite {
	configs, err := SizeDensity(
		Range(2048, 16_384+1, 2048),
		Steps(0, 1, 0.1),
	)
	if err != nil {
		panic(err)
	}

	return Suite{Name: "size_density", Configs: configs}
}

// SizeBlowupSuite grows the axis from 2²⁰ to 2³⁰ in steps of 2²² while
// holding the number of filled cells at 2²⁰.
func SizeBlowupSuite() Suite {
	configs, err := SizeCount(
		Range(1<<20, (1<<30-1)+(1<<22), 1<<22),
		1<<20,
	)
	if err != nil {
		panic(err)
	}

	return Suite{Name: "size_same_density", Configs: configs}
}

// BuiltinSuites returns the suites run when no plan is given.
func BuiltinSuites() []Suite {
	return []Suite{SizeDensitySuite(), SizeBlowupSuite()}
}

// SuiteByName looks up a built-in suite.
func SuiteByName(name string) (Suite, bool) {
	for _, s := range BuiltinSuites() {
		if s.Name == name {
			return s, true
		}
	}

	return Suite{}, false
}
