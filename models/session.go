package models

// Stage names one step of the fixed session sequence.
type Stage string

// Stages in execution order.
const (
	StageOpen            Stage = "open"
	StageSelectSource    Stage = "selectSource"
	StageSelectPort      Stage = "selectPort"
	StageStartTest       Stage = "startTest"
	StageAwaitCompletion Stage = "awaitCompletion"
	StageExtractResults  Stage = "extractResults"
	StagePersist         Stage = "persist"
)

// Stages lists every stage in the order the orchestrator runs them.
var Stages = []Stage{
	StageOpen,
	StageSelectSource,
	StageSelectPort,
	StageStartTest,
	StageAwaitCompletion,
	StageExtractResults,
	StagePersist,
}

// Sentinels recorded when a supplementary region cannot be read.
const (
	StatsUnavailable    = "统计信息获取失败"
	ProgressUnavailable = "测试进度获取失败"
)

// ResultBundle is the text extracted from one finished test.
// All fields are opaque; the bundle is never modified after creation.
type ResultBundle struct {
	Stats    string
	Progress string
	Body     string
}
