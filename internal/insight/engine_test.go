package insight

import (
	"math"
	"strings"
	"testing"
	"time"
)

func TestDetectIntent_Action(t *testing.T) {
	intent, confidence := DetectIntent("run my onboarding workflow urgently")

	if intent != "action" {
		t.Errorf("expected intent 'action', got '%s'", intent)
	}
	if confidence <= fallbackConfidence {
		t.Errorf("expected confidence above fallback, got %f", confidence)
	}
}

func TestDetectIntent_Information(t *testing.T) {
	intent, _ := DetectIntent("show me the status of the deployment")

	if intent != "information" {
		t.Errorf("expected intent 'information', got '%s'", intent)
	}
}

func TestDetectIntent_PriorityOrder(t *testing.T) {
	// "run" (action) and "list" (information) both present; action wins
	// because it comes first in the detection order.
	intent, _ := DetectIntent("run the job and list results")

	if intent != "action" {
		t.Errorf("expected 'action' to win priority, got '%s'", intent)
	}
}

func TestDetectIntent_Default(t *testing.T) {
	intent, confidence := DetectIntent("hello there")

	if intent != "action" {
		t.Errorf("expected default intent 'action', got '%s'", intent)
	}
	if confidence != fallbackConfidence {
		t.Errorf("expected fallback confidence %f, got %f", fallbackConfidence, confidence)
	}
}

func TestDetectUrgency_Levels(t *testing.T) {
	cases := []struct {
		message  string
		expected string
	}{
		{"production is broken, emergency!", "critical"},
		{"please do this urgently", "high"},
		{"whenever you have time", "medium"},
	}

	for _, tc := range cases {
		got := detectUrgency(tc.message)
		if got != tc.expected {
			t.Errorf("message %q: expected urgency '%s', got '%s'", tc.message, tc.expected, got)
		}
	}
}

func TestMergeUrgency_ContextWins(t *testing.T) {
	if got := mergeUrgency("medium", "high"); got != "high" {
		t.Errorf("expected 'high', got '%s'", got)
	}
	if got := mergeUrgency("critical", "high"); got != "critical" {
		t.Errorf("expected 'critical', got '%s'", got)
	}
}

func TestAnalyzeWorkflow_Stages(t *testing.T) {
	cases := []struct {
		name     string
		wf       WorkflowState
		expected string
	}{
		{"planning", WorkflowState{PendingActions: []string{"a", "b"}}, "planning"},
		{"execution", WorkflowState{CompletedSteps: []string{"a"}, PendingActions: []string{"b"}}, "execution"},
		{"completion", WorkflowState{CompletedSteps: []string{"a", "b"}}, "completion"},
	}

	for _, tc := range cases {
		stage, _, ok := analyzeWorkflow(&tc.wf)
		if !ok {
			t.Fatalf("%s: expected workflow analysis to succeed", tc.name)
		}
		if stage != tc.expected {
			t.Errorf("%s: expected stage '%s', got '%s'", tc.name, tc.expected, stage)
		}
	}
}

func TestAnalyzeWorkflow_CompletionRatio(t *testing.T) {
	wf := &WorkflowState{
		CompletedSteps: []string{"a", "b", "c"},
		PendingActions: []string{"d"},
	}

	_, ratio, _ := analyzeWorkflow(wf)

	if math.Abs(ratio-0.75) > 0.001 {
		t.Errorf("expected completion ratio 0.75, got %f", ratio)
	}
}

func TestConversationPattern_Buckets(t *testing.T) {
	short, _ := ConversationPattern(make([]Message, 2))
	medium, _ := ConversationPattern(make([]Message, 5))
	extended, switches := ConversationPattern(make([]Message, 12))

	if short != "short" || medium != "medium" || extended != "extended" {
		t.Errorf("expected short/medium/extended, got %s/%s/%s", short, medium, extended)
	}
	if switches != 2 {
		t.Errorf("expected 2 context switches for 12 messages, got %d", switches)
	}
}

func TestAnalyze_ConversationPatternCarried(t *testing.T) {
	e := NewEngine()
	history := make([]Message, 12)
	for i := range history {
		history[i] = Message{Role: "user", Content: "short message", Timestamp: time.Now()}
	}

	ins := e.Analyze("run the report", history, nil, UserContext{UserID: "u1"})

	if ins.ConversationPattern != "extended" {
		t.Errorf("expected pattern 'extended' for 12 messages, got '%s'", ins.ConversationPattern)
	}
	if ins.ContextSwitches != 2 {
		t.Errorf("expected 2 context switches, got %d", ins.ContextSwitches)
	}

	fresh := e.Analyze("run the report", nil, nil, UserContext{UserID: "u1"})
	if fresh.ConversationPattern != "short" {
		t.Errorf("expected pattern 'short' without history, got '%s'", fresh.ConversationPattern)
	}
}

func TestAnalyzeConversation_TopicConsistencyFloor(t *testing.T) {
	stability, _ := analyzeConversation(make([]Message, 50))

	if stability != topicConsistencyFloor {
		t.Errorf("expected stability floored at %f, got %f", topicConsistencyFloor, stability)
	}
}

func TestAnalyzeConversation_Expertise(t *testing.T) {
	long := strings.Repeat("x", 250)
	history := []Message{
		{Role: "user", Content: long, Timestamp: time.Now()},
	}

	_, expertise := analyzeConversation(history)

	if expertise != "advanced" {
		t.Errorf("expected 'advanced' for long messages, got '%s'", expertise)
	}
}

func TestAnalyze_ClampedRanges(t *testing.T) {
	engine := NewEngine()

	ins := engine.Analyze("run the urgent deployment now!", nil, nil, UserContext{UserID: "u1"})

	if ins.IntentConfidence < 0 || ins.IntentConfidence > 1 {
		t.Errorf("intent confidence out of range: %f", ins.IntentConfidence)
	}
	if ins.ContextStability < 0 || ins.ContextStability > 1 {
		t.Errorf("context stability out of range: %f", ins.ContextStability)
	}
	if ins.Confidence < 0 || ins.Confidence > 1 {
		t.Errorf("confidence out of range: %f", ins.Confidence)
	}
}

func TestAnalyze_ConfidenceSynthesis(t *testing.T) {
	engine := NewEngine()

	ins := engine.Analyze("run the workflow", nil, nil, UserContext{UserID: "u1"})

	expected := 0.6*ins.IntentConfidence + 0.4*ins.ContextStability
	if math.Abs(ins.Confidence-expected) > 0.001 {
		t.Errorf("expected confidence %f, got %f", expected, ins.Confidence)
	}
}

func TestAnalyze_SkillLevelOverridesInference(t *testing.T) {
	engine := NewEngine()

	ins := engine.Analyze("help", nil, nil, UserContext{UserID: "u1", SkillLevel: "advanced"})

	if ins.UserExpertise != "advanced" {
		t.Errorf("expected declared skill level to win, got '%s'", ins.UserExpertise)
	}
}

func TestAnalyze_EnvironmentFactors(t *testing.T) {
	engine := NewEngine()
	uc := UserContext{
		UserID: "u1",
		Time:   TimeContext{Urgency: "high", TimeOfDay: "morning", WorkingHours: true},
		Device: DeviceContext{Type: "mobile"},
		Business: BusinessContext{
			CollaborationLevel: "team",
		},
	}

	ins := engine.Analyze("do the thing", nil, nil, uc)

	expected := []string{"urgency:high", "time:morning", "working-hours", "device:mobile", "collaborative"}
	if len(ins.EnvironmentFactors) != len(expected) {
		t.Fatalf("expected %d factors, got %d: %v", len(expected), len(ins.EnvironmentFactors), ins.EnvironmentFactors)
	}
	for i, f := range expected {
		if ins.EnvironmentFactors[i] != f {
			t.Errorf("factor %d: expected '%s', got '%s'", i, f, ins.EnvironmentFactors[i])
		}
	}
}

func TestDetectComplexity_Thresholds(t *testing.T) {
	simple := detectComplexity("run it")
	if simple != "simple" {
		t.Errorf("expected 'simple', got '%s'", simple)
	}

	complex := detectComplexity("orchestrate comprehensive infrastructure reconciliation across heterogeneous deployment environments simultaneously")
	if complex != "complex" {
		t.Errorf("expected 'complex', got '%s'", complex)
	}
}

func TestFallbackInsights_Fixed(t *testing.T) {
	ins := FallbackInsights()

	if ins.Urgency != "medium" {
		t.Errorf("expected medium urgency, got '%s'", ins.Urgency)
	}
	if ins.UserExpertise != "intermediate" {
		t.Errorf("expected intermediate expertise, got '%s'", ins.UserExpertise)
	}
	if ins.Confidence != fallbackConfidence {
		t.Errorf("expected confidence %f, got %f", fallbackConfidence, ins.Confidence)
	}
}
