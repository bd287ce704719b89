package taxonomy

// Category names of the built-in taxonomy.
const (
	CustomerUnderstanding = "Customer Understanding"
	FairTreatment         = "Fair Treatment"
	VulnerabilityHandling = "Vulnerability Handling"
	ResolutionSupport     = "Resolution & Support"

	// CustomerServiceCall only scores understanding and fair treatment.
	CustomerServiceCall = "Customer Service"
)

// DefaultDocument returns the built-in collections QA taxonomy.
func DefaultDocument() Document {
	return Document{
		Categories: []Category{
			{
				Name: CustomerUnderstanding,
				ExactPhrases: []string{
					"do you understand", "let me explain", "does that make sense", "is that clear",
					"just to clarify", "i’ll walk you through", "happy to explain again",
					"take your time to understand", "feel free to ask questions",
					"would you like me to repeat", "explain it simply", "easy to understand",
					"clear explanation", "any questions so far", "let me break that down",
					"i can rephrase that for you",
				},
				ConceptPhrases: []string{
					"checking the customer understands",
					"explaining the terms clearly",
					"patient instruction",
					"offering to repeat or rephrase information",
				},
			},
			{
				Name: FairTreatment,
				ExactPhrases: []string{
					"we're here to help", "take your time", "you have options", "we won’t pressure you",
					"we want what's best for you", "we’ll support you", "no obligation", "your decision",
					"you’re in control", "at your pace", "help you decide", "consider your situation",
					"it's completely up to you", "we won't rush you", "you're free to choose",
				},
				ConceptPhrases: []string{
					"no pressure on the customer",
					"the customer is free to choose",
					"treating the customer fairly",
				},
			},
			{
				Name: VulnerabilityHandling,
				ExactPhrases: []string{
					"take a note of that", "i’ve flagged that", "we can offer support", "we'll pause things",
					"i’m noting you’re vulnerable", "we have options to help", "thank you for sharing",
					"i’ll record that", "offer extra help", "understand your situation",
					"additional support available",
				},
				ConceptPhrases: []string{
					"recording the customer's vulnerability",
					"acknowledging difficult personal circumstances",
					"offering extra support to a vulnerable customer",
				},
			},
			{
				Name: ResolutionSupport,
				ExactPhrases: []string{
					"payment plan", "breathing space", "write off", "income and expenditure", "support team",
					"arrangement", "alternative solution", "we can restructure", "pause your account",
					"reschedule", "repayment assistance", "financial support", "temporary forbearance",
				},
				ConceptPhrases: []string{
					"setting up a repayment plan",
					"offering financial support options",
					"agreeing the next steps",
				},
			},
		},
		Keywords: map[string][]string{
			string(TierHigh): {
				"suicide", "domestic violence", "domestic abuse", "dv", "terminal", "terminal diagnosis",
				"cancer", "sectioned", "harassment", "threaten", "death", "bereavement", "bereaved",
				"homeless", "mental capacity", "cognitive impairment", "psychiatric", "serious illness",
				"emergency help", "addiction", "gambling", "scam", "police",
			},
			string(TierMedium): {
				"vulnerable", "mental health", "depression", "anxiety", "stress", "stressed", "bipolar",
				"PTSD", "ADHD", "autism", "illness", "surgery", "hospital", "diagnosis", "disabled", "deaf",
				"blind", "unemployed", "unable to pay", "financial difficulties", "struggling", "feeling low",
				"grieving", "funeral costs", "trauma", "alcohol", "drug", "bankruptcy", "repossession",
				"neurological condition", "emotionally distressed", "chronic", "mobility issues",
				"side effects", "injury", "signed off", "emotional support", "breathing space",
			},
			string(TierLow): {
				"late payment", "complaint", "refund", "collection", "manager", "write off",
				"irresponsible", "arrears", "forbearance",
			},
		},
		Profiles: map[string][]string{
			CustomerServiceCall: {CustomerUnderstanding, FairTreatment},
		},
	}
}

// Default returns the built-in taxonomy. It panics only if the built-in tables are broken.
func Default(opts ...Option) *Taxonomy {
	t, err := FromDocument(DefaultDocument(), opts...)
	if err != nil {
		panic("taxonomy: invalid built-in taxonomy: " + err.Error())
	}
	return t
}
