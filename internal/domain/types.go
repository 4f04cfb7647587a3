package domain

type SessionMode string

const (
	ModeSequential SessionMode = "sequential"
	ModeSwarm      SessionMode = "swarm"
)

type SessionState string

const (
	SessionPending   SessionState = "pending"
	SessionRunning   SessionState = "running"
	SessionComplete  SessionState = "complete"
	SessionAborted   SessionState = "aborted"
	SessionCancelled SessionState = "cancelled"
)

func (s SessionState) Terminal() bool {
	switch s {
	case SessionComplete, SessionAborted, SessionCancelled:
		return true
	}
	return false
}

type StepStatus string

const (
	StepSuccess  StepStatus = "success"
	StepDegraded StepStatus = "degraded"
	StepFailed   StepStatus = "failed"
)

type Specialist string

const (
	SpecialistEconomist   Specialist = "economist"
	SpecialistLawyer      Specialist = "lawyer"
	SpecialistSociologist Specialist = "sociologist"
	SpecialistSynthesizer Specialist = "synthesizer"
)

// Phase order is fixed. Index is 1-based in PhaseResult.
var PhaseNames = []string{
	"Market Research",
	"Financial Modeling",
	"Legal & Regulatory",
	"Technical Feasibility",
	"Competitive Analysis",
	"Risk Assessment",
	"Strategic Planning",
}

var PhaseSpecialists = map[string]Specialist{
	"Market Research":       SpecialistEconomist,
	"Financial Modeling":    SpecialistEconomist,
	"Legal & Regulatory":    SpecialistLawyer,
	"Technical Feasibility": SpecialistSociologist,
	"Competitive Analysis":  SpecialistEconomist,
	"Risk Assessment":       SpecialistLawyer,
	"Strategic Planning":    SpecialistSynthesizer,
}

type ScenarioType string

const (
	ScenarioEconomicDownturn      ScenarioType = "economic_downturn"
	ScenarioCompetitiveDisruption ScenarioType = "competitive_disruption"
	ScenarioRegulatoryChanges     ScenarioType = "regulatory_changes"
	ScenarioTechObsolescence      ScenarioType = "tech_obsolescence"
	ScenarioSupplyChainCrisis     ScenarioType = "supply_chain_crisis"
	ScenarioMarketSaturation      ScenarioType = "market_saturation"
	ScenarioFundingDrought        ScenarioType = "funding_drought"
	ScenarioTalentShortage        ScenarioType = "talent_shortage"
)

var ScenarioTypes = []ScenarioType{
	ScenarioEconomicDownturn,
	ScenarioCompetitiveDisruption,
	ScenarioRegulatoryChanges,
	ScenarioTechObsolescence,
	ScenarioSupplyChainCrisis,
	ScenarioMarketSaturation,
	ScenarioFundingDrought,
	ScenarioTalentShortage,
}

var ScenarioSpecialists = map[ScenarioType]Specialist{
	ScenarioEconomicDownturn:      SpecialistEconomist,
	ScenarioCompetitiveDisruption: SpecialistEconomist,
	ScenarioRegulatoryChanges:     SpecialistLawyer,
	ScenarioTechObsolescence:      SpecialistEconomist,
	ScenarioSupplyChainCrisis:     SpecialistEconomist,
	ScenarioMarketSaturation:      SpecialistEconomist,
	ScenarioFundingDrought:        SpecialistEconomist,
	ScenarioTalentShortage:        SpecialistSociologist,
}

// SeverityPrior is the baseline severity assumed for a scenario before the
// specialist refines it. Scale 0-10.
var SeverityPriors = map[ScenarioType]float64{
	ScenarioEconomicDownturn:      6.5,
	ScenarioCompetitiveDisruption: 6.0,
	ScenarioRegulatoryChanges:     5.5,
	ScenarioTechObsolescence:      5.0,
	ScenarioSupplyChainCrisis:     5.5,
	ScenarioMarketSaturation:      4.5,
	ScenarioFundingDrought:        7.0,
	ScenarioTalentShortage:        4.0,
}

type FinancialAssumptions struct {
	InitialInvestment float64   `json:"initial_investment"`
	CashFlows         []float64 `json:"cash_flows,omitempty"`
	DiscountRate      float64   `json:"discount_rate"`
	MonthlyChurn      float64   `json:"monthly_churn,omitempty"`
	CAC               float64   `json:"cac,omitempty"`
	LTV               float64   `json:"ltv,omitempty"`
	ARPU              float64   `json:"arpu,omitempty"`
}

type Idea struct {
	Description  string                `json:"description"`
	Industry     string                `json:"industry"`
	TargetMarket string                `json:"target_market"`
	BusinessMod  string                `json:"business_model"`
	Region       string                `json:"region,omitempty"`
	Financials   *FinancialAssumptions `json:"financials,omitempty"`
}

type ToolCallOutcome string

const (
	ToolCallSuccess          ToolCallOutcome = "success"
	ToolCallTransientFailure ToolCallOutcome = "transient_failure"
	ToolCallFatalFailure     ToolCallOutcome = "fatal_failure"
)

type ToolCallRecord struct {
	ID           string            `json:"id"`
	ToolName     string            `json:"tool_name"`
	Params       map[string]string `json:"params,omitempty"`
	AttemptCount int               `json:"attempt_count"`
	Outcome      ToolCallOutcome   `json:"outcome"`
	LatencyMS    int64             `json:"latency_ms"`
	CreatedAt    string            `json:"created_at"`
}

type PhaseResult struct {
	PhaseIndex int              `json:"phase_index"`
	PhaseName  string           `json:"phase_name"`
	Specialist Specialist       `json:"specialist"`
	Output     string           `json:"output"`
	ToolCalls  []ToolCallRecord `json:"tool_calls,omitempty"`
	Confidence float64          `json:"confidence"`
	Status     StepStatus       `json:"status"`
	RetryCount int              `json:"retry_count"`
	StartedAt  string           `json:"started_at"`
	EndedAt    string           `json:"ended_at"`
}

type ScenarioResult struct {
	ScenarioType  ScenarioType `json:"scenario_type"`
	Specialist    Specialist   `json:"specialist"`
	SeverityScore *float64     `json:"severity_score,omitempty"`
	Mitigations   []string     `json:"mitigations,omitempty"`
	Status        StepStatus   `json:"status"`
	FailureReason string       `json:"failure_reason,omitempty"`
	StartedAt     string       `json:"started_at"`
	EndedAt       string       `json:"ended_at"`
}

// Financials for the idea as computed during the financial modeling phase.
// IRR and payback stay nil when the cash flow shape leaves them undefined;
// that is a valid answer, not an error.
type FinancialProjection struct {
	CashFlows      []float64 `json:"cash_flows"`
	DiscountRate   float64   `json:"discount_rate"`
	NPV            float64   `json:"npv"`
	IRR            *float64  `json:"irr,omitempty"`
	PaybackPeriods *int      `json:"payback_periods,omitempty"`
}

type OverallStatus string

const (
	OverallValidated    OverallStatus = "validated"
	OverallWithWarnings OverallStatus = "validated_with_warnings"
	OverallNotViable    OverallStatus = "not_viable"
	OverallAborted      OverallStatus = "aborted"
	OverallCancelled    OverallStatus = "cancelled"
)

type Report struct {
	SessionID       string               `json:"session_id"`
	Mode            SessionMode          `json:"mode"`
	OverallStatus   OverallStatus        `json:"overall_status"`
	CompositeScore  float64              `json:"composite_score"`
	Phases          []PhaseResult        `json:"phases,omitempty"`
	Scenarios       []ScenarioResult     `json:"scenarios,omitempty"`
	DegradedPhases  []string             `json:"degraded_phases,omitempty"`
	FailedPhase     string               `json:"failed_phase,omitempty"`
	FailedScenarios []ScenarioType       `json:"failed_scenarios,omitempty"`
	Financials      *FinancialProjection `json:"financials,omitempty"`
	GeneratedAt     string               `json:"generated_at"`
}

type ValidationSession struct {
	ID         string           `json:"id"`
	Mode       SessionMode      `json:"mode"`
	State      SessionState     `json:"state"`
	Idea       Idea             `json:"idea"`
	Phases     []PhaseResult    `json:"phases,omitempty"`
	Scenarios  []ScenarioResult `json:"scenarios,omitempty"`
	Report     *Report          `json:"report,omitempty"`
	ReportJSON string           `json:"report_json,omitempty"`
	StartedAt  string           `json:"started_at"`
	EndedAt    string           `json:"ended_at,omitempty"`
}

type ErrorEvent struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Source    string `json:"source"`
	CreatedAt string `json:"created_at"`
}

type State struct {
	Sessions []ValidationSession `json:"sessions"`
	Errors   []ErrorEvent        `json:"errors"`
}

type Summary struct {
	Counts struct {
		Sessions  int `json:"sessions"`
		Running   int `json:"running"`
		Complete  int `json:"complete"`
		Aborted   int `json:"aborted"`
		Cancelled int `json:"cancelled"`
	} `json:"counts"`
	SuccessRate   float64 `json:"success_rate"`
	AvgConfidence float64 `json:"avg_confidence"`
	ByMode        map[string]struct {
		Count    int `json:"count"`
		Complete int `json:"complete"`
	} `json:"by_mode"`
	RecentErrors []ErrorEvent `json:"recent_errors,omitempty"`
}

func EmptyState() State {
	return State{
		Sessions: []ValidationSession{},
		Errors:   []ErrorEvent{},
	}
}
