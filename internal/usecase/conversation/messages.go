package conversation

// Bot texts shown in the transcript.
const (
	msgWelcome        = "Hello! Welcome to the Design UI/UX Chatbot. I'm here to help you with your design needs."
	msgWelcomeAsk     = "What are you looking for today?"
	msgChooseFlow     = "I can help you with either a Webpage Redesign or creating a New Webpage from Scratch. Which one are you looking for?"
	msgStartRedesign  = "Great! I'd be happy to help you with your webpage redesign. Let me ask you a few questions to understand your current webpage and what you're aiming for."
	msgStartNewSite   = "Excellent! Creating a new webpage from scratch is exciting. Let me ask you a few questions to understand your needs better."
	msgFlowIntegrity  = "I encountered an error. Please refresh the page and try again."
	msgSessionLimit   = "You've reached the maximum number of sessions (%d). Thank you for using our chatbot!"
	msgRatingPrompt   = "Please rate this design from 1 to 5 (1 = needs work, 5 = love it)."
	msgRatingEcho     = "I rate this design %d/5"
	msgAskFeedback    = "Thanks for the honesty! What didn't you like about the design?"
	msgAskEmail       = "Great! Please share your email so we can connect you with an engineer."
	msgFeedbackThanks = "Thanks for sharing. Please drop your email so an engineer can connect with you."
	msgClosing        = "Thanks! An engineer will connect with you shortly. Closing the session now."
	msgInvalidEmail   = "That doesn't look like a valid email address. Please check it and try again."
	msgEmptyFeedback  = "Please tell us what you didn't like so we can improve the design."
)

// Quick actions offered on the welcome screen.
const (
	ActionRedesign   = "Webpage Redesign"
	ActionNewWebsite = "New Webpage from Scratch"
)

var QuickActions = []string{ActionRedesign, ActionNewWebsite}

// Answer validation texts.
const (
	msgEmptyBusiness   = "Please tell me about your business. This information is important."
	msgEmptyAudience   = "Please describe your target audience. This helps us design better for your users."
	msgEmptyGoals      = "Please share your webpage goals. This helps us prioritize features and design elements."
	msgEmptyBrand      = "Please share details about your brand guidelines. This information helps us design according to your brand identity."
	msgEmptyPageType   = "Please choose the type of page you want to create."
	msgEmptyIssues     = "Please select at least one option that describes what is not working with your current webpage."
	msgBadCurrentURL   = "I didn't detect a valid webpage URL. Please paste the full URL (e.g., https://example.com or example.com), or leave it blank if you don't have one."
	msgUnsafeURL       = "I can't analyze addresses on local or private networks. Please share a public webpage URL, or leave it blank if you don't have one."
	msgUseReferences   = "Please add up to 3 reference websites with a short description of what you like about each, or choose \"I don't have any\"."
	msgBadReference    = "One of the references doesn't look right: %s. Please check the links (e.g., https://example.com) and add a short description for each."
	msgTooLong         = "That answer is a bit too long. Please keep it under %d characters."
	msgOtherPageType   = "Please tell me what type of page you want to create:"
	msgOtherPageAgain  = "I see you selected 'Other' again. Please type the actual page type you want to create (e.g., 'FAQ Page', 'Testimonials Page', etc.)."
	msgOtherPageEmpty  = "Please tell me what type of page you want to create. I need this information to continue."
	msgOtherIssues     = "Please tell us what else is not working with your current webpage:"
	msgOtherIssueAgain = "I see you selected 'Other' again. Please type what else is not working with your current webpage."
	msgOtherIssueEmpty = "Please tell us what else is not working with your current webpage. I need this information to continue."
)

// Sentinel labels.
const (
	OptionOther      = "Other"
	OptionDoneIssues = "Done selecting issues"
	OptionNone       = "I don't have any"
	OptionYes        = "Yes"
	OptionNo         = "No"
)

// Placeholders.
const (
	placeholderDefault = "Type your message..."
	placeholderOther   = "Type your answer..."
	placeholderEmail   = "you@company.com"
	placeholderFeedbk  = "Tell us what you didn't like..."
)
