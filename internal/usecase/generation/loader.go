package generation

type loaderType string

const (
	loaderAnalyzingReferences    loaderType = "analyzing_references"
	loaderReviewingPage          loaderType = "reviewing_page"
	loaderGeneratingSpecNew      loaderType = "generating_spec_new"
	loaderGeneratingSpecRedesign loaderType = "generating_spec_redesign"
	loaderProcessingHTML         loaderType = "processing_html"
	loaderPreparingHTML          loaderType = "preparing_html"
)

const loaderFallback = "Working on it..."

var loaderMessages = map[loaderType][]string{
	loaderAnalyzingReferences: {
		"Checking out your reference websites...",
		"Looking at your inspiration sites...",
		"Reviewing your reference examples...",
	},
	loaderReviewingPage: {
		"Taking a closer look at your page...",
		"Reviewing your current design...",
		"Analyzing your webpage...",
	},
	loaderGeneratingSpecNew: {
		"Creating your webpage blueprint...",
		"Designing your page structure...",
		"Planning your website layout...",
	},
	loaderGeneratingSpecRedesign: {
		"Planning your redesign...",
		"Creating your redesign blueprint...",
		"Designing your improved layout...",
	},
	loaderProcessingHTML: {
		"Finalizing your webpage...",
		"Polishing the details...",
		"Almost there...",
	},
	loaderPreparingHTML: {
		"Getting ready to build...",
		"Preparing everything...",
		"Setting things up...",
	},
}

// loaderMessage cycles through the messages of a loader type.
func loaderMessage(t loaderType, i int) string {
	messages := loaderMessages[t]
	if len(messages) == 0 {
		return loaderFallback
	}
	if i < 0 {
		i = -i
	}
	return messages[i%len(messages)]
}
