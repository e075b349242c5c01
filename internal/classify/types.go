package classify

// ResearchType is one entry of the research-type taxonomy.
type ResearchType struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Keywords        []string `json:"keywords"`
	Sections        []string `json:"sections"`
	EvaluationFocus []string `json:"evaluation_focus"`
}

// DefaultType is used when classification fails or names an unknown type.
const DefaultType = "empirical_quantitative"

var Types = []ResearchType{
	{
		Name:            "empirical_quantitative",
		Description:     "Empirical research with quantitative methods, statistical analysis, and hypothesis testing",
		Keywords:        []string{"experiment", "statistical", "hypothesis", "sample", "significant", "p-value", "correlation", "regression", "variance", "mean", "standard deviation", "control group", "treatment group", "random", "variable", "data", "analysis", "quantitative", "measure", "test"},
		Sections:        []string{"methodology", "results", "discussion", "limitations", "future work"},
		EvaluationFocus: []string{"statistical validity", "sample size", "methodology rigor", "reproducibility", "generalizability", "effect size", "power analysis"},
	},
	{
		Name:            "empirical_qualitative",
		Description:     "Empirical research with qualitative methods such as interviews, case studies, or ethnography",
		Keywords:        []string{"interview", "participant", "theme", "qualitative", "case study", "ethnography", "observation", "narrative", "discourse", "content analysis", "grounded theory", "phenomenology", "coding", "transcript", "focus group"},
		Sections:        []string{"methodology", "findings", "discussion", "limitations"},
		EvaluationFocus: []string{"methodological rigor", "trustworthiness", "credibility", "transferability", "dependability", "confirmability", "reflexivity", "thick description"},
	},
	{
		Name:            "theoretical",
		Description:     "Theoretical research proposing new concepts, frameworks, or models without empirical testing",
		Keywords:        []string{"theory", "framework", "model", "concept", "proposition", "axiom", "paradigm", "theoretical", "conceptual", "philosophy", "logic", "argument", "premise", "conclusion", "deductive", "inductive"},
		Sections:        []string{"theoretical framework", "model development", "implications", "future research"},
		EvaluationFocus: []string{"logical consistency", "conceptual clarity", "theoretical contribution", "explanatory power", "parsimony", "scope", "utility"},
	},
	{
		Name:            "review",
		Description:     "Literature review or meta-analysis synthesizing existing research",
		Keywords:        []string{"review", "literature", "meta-analysis", "systematic", "synthesis", "summarize", "previous research", "state of the art", "survey", "overview"},
		Sections:        []string{"search methodology", "inclusion criteria", "synthesis", "research gaps", "future directions"},
		EvaluationFocus: []string{"comprehensiveness", "systematic approach", "quality assessment", "synthesis methods", "research gap identification"},
	},
	{
		Name:            "methodology",
		Description:     "Research proposing new research methods, tools, or techniques",
		Keywords:        []string{"method", "technique", "tool", "approach", "procedure", "protocol", "algorithm", "measurement", "instrument", "assessment", "validation", "reliability", "accuracy", "precision"},
		Sections:        []string{"method description", "validation", "comparison", "limitations"},
		EvaluationFocus: []string{"novelty", "validity", "reliability", "usability", "efficiency", "comparison with existing methods"},
	},
	{
		Name:            "case_study",
		Description:     "In-depth analysis of a specific case, organization, or phenomenon",
		Keywords:        []string{"case", "organization", "company", "industry", "specific", "particular", "instance", "example", "illustration", "in-depth", "detailed"},
		Sections:        []string{"case description", "analysis", "findings", "implications"},
		EvaluationFocus: []string{"depth of analysis", "contextual understanding", "transferability of insights", "practical implications"},
	},
	{
		Name:            "simulation",
		Description:     "Research using computational models or simulations",
		Keywords:        []string{"simulation", "model", "computational", "parameter", "algorithm", "iteration", "convergence", "optimization", "agent-based", "monte carlo", "stochastic", "deterministic"},
		Sections:        []string{"model description", "simulation setup", "results", "validation"},
		EvaluationFocus: []string{"model validity", "parameter justification", "sensitivity analysis", "comparison with real-world data", "computational efficiency"},
	},
	{
		Name:            "design_science",
		Description:     "Research designing and evaluating artifacts, systems, or solutions",
		Keywords:        []string{"design", "artifact", "system", "solution", "prototype", "implementation", "evaluation", "usability", "utility", "effectiveness", "efficiency", "satisfaction"},
		Sections:        []string{"problem identification", "design", "implementation", "evaluation", "discussion"},
		EvaluationFocus: []string{"problem relevance", "design quality", "evaluation rigor", "utility", "novelty", "practical implications"},
	},
	{
		Name:            "whitepaper",
		Description:     "Technical document describing a problem, solution, or technology, often with preliminary results or proof of concept",
		Keywords:        []string{"whitepaper", "technical", "solution", "technology", "architecture", "implementation", "proof of concept", "preliminary", "proposal", "roadmap"},
		Sections:        []string{"problem statement", "proposed solution", "architecture", "implementation", "preliminary results", "future work"},
		EvaluationFocus: []string{"problem definition clarity", "solution feasibility", "technical soundness", "preliminary validation", "limitations acknowledgment"},
	},
	{
		Name:            "position_paper",
		Description:     "Paper presenting an opinion, viewpoint, or argument on a topic",
		Keywords:        []string{"position", "viewpoint", "perspective", "opinion", "argument", "debate", "controversial", "propose", "advocate", "critique", "challenge"},
		Sections:        []string{"position statement", "arguments", "counterarguments", "implications"},
		EvaluationFocus: []string{"argument strength", "evidence quality", "consideration of alternatives", "implications"},
	},
}

func Lookup(name string) (ResearchType, bool) {
	for _, t := range Types {
		if t.Name == name {
			return t, true
		}
	}
	return ResearchType{}, false
}

func mustLookup(name string) ResearchType {
	t, ok := Lookup(name)
	if !ok {
		t, _ = Lookup(DefaultType)
	}
	return t
}
