package insight

import (
	"strings"
	"unicode"
)

const (
	// fallbackConfidence is the confidence of the fail-closed fallback record.
	fallbackConfidence = 0.3

	// topicConsistencyFloor is the lower bound for conversation stability.
	topicConsistencyFloor = 0.3

	// topicDecayPerMessage is how much topic consistency drops per message.
	topicDecayPerMessage = 0.04

	// complexWordLength is the minimum rune count for a "complex" word.
	complexWordLength = 8

	// advancedMessageLength is the average message length (chars) that
	// suggests an advanced user.
	advancedMessageLength = 200

	// intermediateMessageLength is the average message length (chars) that
	// suggests an intermediate user.
	intermediateMessageLength = 100
)

// intentSignals maps intent labels to their trigger keywords. Detection
// walks intentOrder and the first label with a keyword hit wins.
var intentSignals = map[string][]string{
	"action":        {"run", "execute", "start", "launch", "trigger", "apply", "update", "delete", "stop", "deploy", "do"},
	"analysis":      {"analyze", "analyse", "compare", "evaluate", "review", "investigate", "measure", "audit"},
	"information":   {"get", "show", "list", "find", "search", "what", "which", "where", "status", "fetch", "read"},
	"decision":      {"should", "choose", "decide", "recommend", "pick", "select", "prioritize"},
	"creation":      {"create", "make", "build", "write", "generate", "draft", "new", "add"},
	"communication": {"send", "notify", "email", "message", "share", "reply", "announce", "post"},
}

// intentOrder fixes the detection priority of intent labels.
var intentOrder = []string{"action", "analysis", "information", "decision", "creation", "communication"}

// urgencySignals maps urgency levels to trigger keywords. "critical"
// outranks "high"; anything else defaults to "medium".
var urgencySignals = map[string][]string{
	"critical": {"critical", "emergency", "immediately", "asap", "outage", "broken", "blocker"},
	"high":     {"urgent", "urgently", "quickly", "soon", "fast", "now", "today", "deadline"},
}

// intentStageTable maps a detected intent to a workflow stage when no
// workflow state was supplied with the request.
var intentStageTable = map[string]string{
	"action":        "execution",
	"creation":      "execution",
	"communication": "execution",
	"analysis":      "planning",
	"information":   "planning",
	"decision":      "planning",
}

// urgencyRank orders urgency levels for merging message and context signals.
var urgencyRank = map[string]int{"low": 0, "medium": 1, "high": 2, "critical": 3}

// Engine derives Insights from raw request context. It is stateless and
// safe for concurrent use.
type Engine struct{}

// NewEngine creates a context analysis engine.
func NewEngine() *Engine {
	return &Engine{}
}

// FallbackInsights is the fixed record returned when analysis fails:
// medium urgency, intermediate expertise, low confidence.
func FallbackInsights() Insights {
	return Insights{
		PrimaryIntent:       "action",
		WorkflowStage:       "execution",
		IntentConfidence:    fallbackConfidence,
		ContextStability:    0.5,
		Urgency:             "medium",
		UserExpertise:       "intermediate",
		MessageComplexity:   "moderate",
		ConversationPattern: "short",
		Confidence:          fallbackConfidence,
	}
}

// Analyze derives Insights from the message, history, workflow state and
// environment. It fails closed: any internal panic yields FallbackInsights
// instead of propagating.
func (e *Engine) Analyze(message string, history []Message, workflow *WorkflowState, uc UserContext) (ins Insights) {
	defer func() {
		if r := recover(); r != nil {
			ins = FallbackInsights()
		}
	}()

	intent, intentConfidence := DetectIntent(message)
	messageUrgency := detectUrgency(message)
	complexity := detectComplexity(message)

	conversationStability, inferredExpertise := analyzeConversation(history)
	pattern, contextSwitches := ConversationPattern(history)

	stage, completionRatio, hasWorkflow := analyzeWorkflow(workflow)
	if !hasWorkflow {
		stage = intentStageTable[intent]
		if stage == "" {
			stage = "execution"
		}
	}

	stability := conversationStability
	if hasWorkflow {
		stability = (conversationStability + completionRatio) / 2
	}

	urgency := mergeUrgency(messageUrgency, uc.Time.Urgency)

	expertise := uc.SkillLevel
	if expertise == "" {
		expertise = inferredExpertise
	}

	ins = Insights{
		PrimaryIntent:       intent,
		WorkflowStage:       stage,
		IntentConfidence:    clamp01(intentConfidence),
		EnvironmentFactors:  environmentFactors(uc, urgency),
		ContextStability:    clamp01(stability),
		Urgency:             urgency,
		UserExpertise:       expertise,
		MessageComplexity:   complexity,
		ConversationDepth:   len(history),
		ConversationPattern: pattern,
		ContextSwitches:     contextSwitches,
		Confidence:          clamp01(0.6*clamp01(intentConfidence) + 0.4*clamp01(stability)),
	}
	return ins
}

// DetectIntent runs the lexical intent pass over a message and returns the
// primary intent label and its confidence. It is deterministic and cheap,
// which also makes it usable for cache-key derivation before full analysis.
func DetectIntent(message string) (string, float64) {
	tokens := tokenize(message)
	if len(tokens) == 0 {
		return "action", fallbackConfidence
	}

	present := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		present[tok] = true
	}

	for _, label := range intentOrder {
		hits := 0
		for _, kw := range intentSignals[label] {
			if present[kw] {
				hits++
			}
		}
		if hits > 0 {
			confidence := 0.4 + 0.2*float64(hits)
			if confidence > 0.9 {
				confidence = 0.9
			}
			return label, confidence
		}
	}

	// No signal detected: default intent with low confidence.
	return "action", fallbackConfidence
}

// detectUrgency returns the urgency level signaled by message keywords.
func detectUrgency(message string) string {
	tokens := tokenize(message)
	present := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		present[tok] = true
	}

	for _, level := range []string{"critical", "high"} {
		for _, kw := range urgencySignals[level] {
			if present[kw] {
				return level
			}
		}
	}
	return "medium"
}

// detectComplexity estimates message complexity from vocabulary and
// sentence length: complexWordRatio*100 + avgSentenceLen*2, with
// thresholds at 30 (complex) and 15 (moderate).
func detectComplexity(message string) string {
	tokens := tokenize(message)
	if len(tokens) == 0 {
		return "simple"
	}

	complexWords := 0
	for _, tok := range tokens {
		if len([]rune(tok)) >= complexWordLength {
			complexWords++
		}
	}
	complexRatio := float64(complexWords) / float64(len(tokens))

	sentences := countSentences(message)
	avgSentenceLen := float64(len(tokens)) / float64(sentences)

	score := complexRatio*100 + avgSentenceLen*2
	switch {
	case score >= 30:
		return "complex"
	case score >= 15:
		return "moderate"
	default:
		return "simple"
	}
}

// analyzeConversation buckets the history pattern and infers stability and
// expertise. Topic consistency decays linearly with history length, floored
// at topicConsistencyFloor; expertise follows average message length.
func analyzeConversation(history []Message) (stability float64, expertise string) {
	count := len(history)

	consistency := 1.0 - topicDecayPerMessage*float64(count)
	if consistency < topicConsistencyFloor {
		consistency = topicConsistencyFloor
	}

	if count == 0 {
		return consistency, "intermediate"
	}

	totalLen := 0
	for _, m := range history {
		totalLen += len(m.Content)
	}
	avgLen := float64(totalLen) / float64(count)

	switch {
	case avgLen > advancedMessageLength:
		expertise = "advanced"
	case avgLen > intermediateMessageLength:
		expertise = "intermediate"
	default:
		expertise = "beginner"
	}

	return consistency, expertise
}

// ConversationPattern buckets history length: "short" (<3), "medium" (<10)
// or "extended". Context switches are estimated as count/5.
func ConversationPattern(history []Message) (pattern string, contextSwitches int) {
	count := len(history)
	switch {
	case count < 3:
		pattern = "short"
	case count < 10:
		pattern = "medium"
	default:
		pattern = "extended"
	}
	return pattern, count / 5
}

// analyzeWorkflow derives the stage and completion ratio from declared
// workflow state: planning with no completed steps, execution while actions
// remain pending, completion otherwise.
func analyzeWorkflow(wf *WorkflowState) (stage string, completionRatio float64, ok bool) {
	if wf == nil {
		return "", 0, false
	}

	completed := len(wf.CompletedSteps)
	pending := len(wf.PendingActions)

	switch {
	case completed == 0:
		stage = "planning"
	case pending > 0:
		stage = "execution"
	default:
		stage = "completion"
	}

	if completed+pending > 0 {
		completionRatio = float64(completed) / float64(completed+pending)
	}
	return stage, completionRatio, true
}

// environmentFactors builds the tag list from environment context.
func environmentFactors(uc UserContext, urgency string) []string {
	var factors []string

	if urgency != "" && urgency != "medium" {
		factors = append(factors, "urgency:"+urgency)
	}
	if uc.Time.TimeOfDay != "" {
		factors = append(factors, "time:"+uc.Time.TimeOfDay)
	}
	if uc.Time.WorkingHours {
		factors = append(factors, "working-hours")
	}
	if uc.Device.Type != "" {
		factors = append(factors, "device:"+uc.Device.Type)
	}
	if uc.Business.CollaborationLevel == "team" {
		factors = append(factors, "collaborative")
	}
	if uc.Business.Department != "" {
		factors = append(factors, "department:"+strings.ToLower(uc.Business.Department))
	}

	return factors
}

// mergeUrgency returns the higher of the message-derived and declared
// urgency levels.
func mergeUrgency(fromMessage, fromContext string) string {
	if fromContext == "" {
		return fromMessage
	}
	if urgencyRank[fromContext] > urgencyRank[fromMessage] {
		return fromContext
	}
	return fromMessage
}

// tokenize lowercases and splits a message into word tokens.
func tokenize(message string) []string {
	return strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// countSentences counts sentence terminators, with a minimum of one.
func countSentences(message string) int {
	n := strings.Count(message, ".") + strings.Count(message, "!") + strings.Count(message, "?")
	if n == 0 {
		return 1
	}
	return n
}
