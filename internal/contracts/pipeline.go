package contracts

// Pipeline Stage 정의 (SSOT)
// 모든 로그, 메트릭 라벨, 잡 이력에서 이 상수를 사용해야 함
//
// 파이프라인 흐름:
//   S0 → S1 → S2 → S3 → S4  ══ contract ══>  EX
//   Guard  Universe  Regime  Scoring  Contract     Execution

// Stage represents a pipeline stage
type Stage string

const (
	// StageGuard S0: 헬스 프로브, 격리 목록, 서킷 브레이커
	// 위치: internal/s0_guard/
	StageGuard Stage = "S0_GUARD"

	// StageUniverse S1: 지수 구성 종목 + 가격 이력 수집
	// 위치: internal/s1_universe/
	StageUniverse Stage = "S1_UNIVERSE"

	// StageRegime S2: 섹터 중앙값 랭킹, 분산도, 킬 스위치
	// 위치: internal/s2_regime/
	StageRegime Stage = "S2_REGIME"

	// StageScoring S3: 7팩터 점수, 손절/목표가
	// 위치: internal/s3_scoring/
	StageScoring Stage = "S3_SCORING"

	// StageContract S4: 시그널 계약 원자적 기록
	// 위치: internal/s4_contract/
	StageContract Stage = "S4_CONTRACT"

	// StageExecution EX: 라이브 재검증, 스로틀링, 멱등 기록
	// 위치: internal/execution/
	StageExecution Stage = "EX_EXECUTION"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// ShortName returns abbreviated stage name (e.g., "S0", "EX")
func (s Stage) ShortName() string {
	switch s {
	case StageGuard:
		return "S0"
	case StageUniverse:
		return "S1"
	case StageRegime:
		return "S2"
	case StageScoring:
		return "S3"
	case StageContract:
		return "S4"
	case StageExecution:
		return "EX"
	default:
		return "UNKNOWN"
	}
}

// Description returns a short description of the stage
func (s Stage) Description() string {
	switch s {
	case StageGuard:
		return "pre-flight guard"
	case StageUniverse:
		return "universe fetch"
	case StageRegime:
		return "sector regime"
	case StageScoring:
		return "candidate scoring"
	case StageContract:
		return "contract write"
	case StageExecution:
		return "execution refinement"
	default:
		return "unknown"
	}
}

// Outcome is the terminal state of one stage invocation
type Outcome string

const (
	OutcomeCompleted      Outcome = "COMPLETED"
	OutcomeProbeFailed    Outcome = "ABORTED_PROBE"   // 조용한 중단 (알림 없음)
	OutcomeBreakerTripped Outcome = "ABORTED_BREAKER" // 알림 1회 + 중단
	OutcomeFailed         Outcome = "FAILED"
)

// PipelineResult represents the result of a pipeline stage execution
type PipelineResult struct {
	Stage       Stage                  `json:"stage"`
	Step        string                 `json:"step"` // S0 covers both Probe and Breaker
	Outcome     Outcome                `json:"outcome"`
	InputCount  int                    `json:"input_count"`
	OutputCount int                    `json:"output_count"`
	Duration    int64                  `json:"duration_ms"`
	Error       string                 `json:"error,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Success reports whether the stage completed
func (r *PipelineResult) Success() bool {
	return r.Outcome == OutcomeCompleted
}

// Label returns the short display label (e.g., "S0:Probe")
func (r *PipelineResult) Label() string {
	return r.Stage.ShortName() + ":" + r.Step
}
