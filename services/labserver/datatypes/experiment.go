// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the experiment document model shared by the
// labserver store, analytics, and insight packages.
//
// One entity exists: Experiment, a single logged ML training/evaluation run
// with its configuration and results. Records live in a document store and
// every derived view (stats, trends, anomalies) is computed on read.
package datatypes

import "time"

// =============================================================================
// Enumerations
// =============================================================================

// Lifecycle status values. Transitions are not constrained; any value may be
// set at any time.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Model type values.
const (
	ModelTypeClassification = "classification"
	ModelTypeRegression     = "regression"
	ModelTypeClustering     = "clustering"
	ModelTypeDeepLearning   = "deep-learning"
	ModelTypeNLP            = "nlp"
	ModelTypeComputerVision = "computer-vision"
	ModelTypeOther          = "other"
)

// Framework values.
const (
	FrameworkTensorFlow  = "tensorflow"
	FrameworkPyTorch     = "pytorch"
	FrameworkScikitLearn = "scikit-learn"
	FrameworkKeras       = "keras"
	FrameworkXGBoost     = "xgboost"
	FrameworkOther       = "other"
)

// ValidModelType reports whether t is one of the known model types.
func ValidModelType(t string) bool {
	switch t {
	case ModelTypeClassification, ModelTypeRegression, ModelTypeClustering,
		ModelTypeDeepLearning, ModelTypeNLP, ModelTypeComputerVision, ModelTypeOther:
		return true
	}
	return false
}

// ValidStatus reports whether s is one of the lifecycle statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// =============================================================================
// Document Model
// =============================================================================

// ModelInfo describes the trained model.
type ModelInfo struct {
	Name      string `json:"name" binding:"required"`
	Type      string `json:"type" binding:"required,oneof=classification regression clustering deep-learning nlp computer-vision other"`
	Framework string `json:"framework,omitempty" binding:"omitempty,oneof=tensorflow pytorch scikit-learn keras xgboost other"`
	Version   string `json:"version,omitempty"`
}

// DatasetInfo describes the dataset an experiment ran against.
type DatasetInfo struct {
	Name           string   `json:"name" binding:"required"`
	Size           int      `json:"size,omitempty" binding:"omitempty,min=0"`
	TrainSize      int      `json:"trainSize,omitempty" binding:"omitempty,min=0"`
	TestSize       int      `json:"testSize,omitempty" binding:"omitempty,min=0"`
	ValidationSize int      `json:"validationSize,omitempty" binding:"omitempty,min=0"`
	Features       []string `json:"features,omitempty"`
	TargetVariable string   `json:"targetVariable,omitempty"`
	DataSource     string   `json:"dataSource,omitempty"`
}

// TrainingConfig captures the training run parameters.
type TrainingConfig struct {
	Epochs        int      `json:"epochs,omitempty"`
	BatchSize     int      `json:"batchSize,omitempty"`
	Optimizer     string   `json:"optimizer,omitempty"`
	LearningRate  *float64 `json:"learningRate,omitempty"`
	EarlyStopping bool     `json:"earlyStopping,omitempty"`
	// Duration is the wall-clock training time in seconds.
	Duration float64 `json:"duration,omitempty"`
}

// Metrics is the fixed set of optional numeric result fields.
//
// Every field is a pointer because different task types populate different
// subsets (classification fills accuracy/f1Score, regression fills mse/r2).
// Fields are documented to lie in conventional ranges (accuracy, precision,
// recall, f1Score, auc in [0,1]) but nothing validates that; consumers must
// treat missing or out-of-range values defensively.
type Metrics struct {
	Accuracy       *float64           `json:"accuracy,omitempty"`
	Precision      *float64           `json:"precision,omitempty"`
	Recall         *float64           `json:"recall,omitempty"`
	F1Score        *float64           `json:"f1Score,omitempty"`
	Loss           *float64           `json:"loss,omitempty"`
	ValidationLoss *float64           `json:"validationLoss,omitempty"`
	MSE            *float64           `json:"mse,omitempty"`
	RMSE           *float64           `json:"rmse,omitempty"`
	MAE            *float64           `json:"mae,omitempty"`
	R2Score        *float64           `json:"r2Score,omitempty"`
	AUC            *float64           `json:"auc,omitempty"`
	CustomMetrics  map[string]float64 `json:"customMetrics,omitempty"`
}

// Named returns the named standard metric, or nil when absent or unknown.
// Only the trend-selectable metrics are addressable by name.
func (m *Metrics) Named(name string) *float64 {
	if m == nil {
		return nil
	}
	switch name {
	case "accuracy":
		return m.Accuracy
	case "precision":
		return m.Precision
	case "recall":
		return m.Recall
	case "f1Score":
		return m.F1Score
	case "loss":
		return m.Loss
	}
	return nil
}

// EpochSnapshot is one per-epoch measurement. The epochMetrics sequence is
// append-only and feeds trend visualization and the insight prompt digest.
type EpochSnapshot struct {
	Epoch         int      `json:"epoch"`
	TrainLoss     *float64 `json:"trainLoss,omitempty"`
	ValLoss       *float64 `json:"valLoss,omitempty"`
	TrainAccuracy *float64 `json:"trainAccuracy,omitempty"`
	ValAccuracy   *float64 `json:"valAccuracy,omitempty"`
	LearningRate  *float64 `json:"learningRate,omitempty"`
}

// AIInsights is the LLM-generated analysis block. It is derived data,
// overwritten wholesale on each regeneration.
type AIInsights struct {
	Summary                  string            `json:"summary"`
	Recommendations          []string          `json:"recommendations"`
	Anomalies                []string          `json:"anomalies"`
	ComparisonWithPrevious   string            `json:"comparisonWithPrevious"`
	HyperparameterSuggestion map[string]string `json:"hyperparameterSuggestions,omitempty"`
	GeneratedAt              time.Time         `json:"generatedAt"`
}

// EnvironmentInfo records the software environment for reproducibility.
type EnvironmentInfo struct {
	PythonVersion string `json:"pythonVersion,omitempty"`
	CudaVersion   string `json:"cudaVersion,omitempty"`
}

// Artifacts holds file references produced by the run.
type Artifacts struct {
	ModelPath      string `json:"modelPath,omitempty"`
	CheckpointPath string `json:"checkpointPath,omitempty"`
	LogsPath       string `json:"logsPath,omitempty"`
	ConfigFile     string `json:"configFile,omitempty"`
}

// Experiment is one logged ML training/evaluation run.
type Experiment struct {
	ID          string `json:"id"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description" binding:"required"`
	Status      string `json:"status,omitempty" binding:"omitempty,oneof=pending running completed failed"`

	Model   ModelInfo   `json:"model" binding:"required"`
	Dataset DatasetInfo `json:"dataset" binding:"required"`

	Hyperparameters Hyperparameters `json:"hyperparameters,omitempty"`
	TrainingConfig  *TrainingConfig `json:"trainingConfig,omitempty"`
	Metrics         Metrics         `json:"metrics"`
	EpochMetrics    []EpochSnapshot `json:"epochMetrics,omitempty"`

	Notes        string   `json:"notes,omitempty"`
	Observations string   `json:"observations,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Category     string   `json:"category,omitempty"`

	RandomSeed      *int64           `json:"randomSeed,omitempty"`
	EnvironmentInfo *EnvironmentInfo `json:"environmentInfo,omitempty"`
	Artifacts       *Artifacts       `json:"artifacts,omitempty"`

	AIInsights *AIInsights `json:"aiInsights,omitempty"`

	// Derived cache flags, recomputed whenever insights are regenerated.
	// Never authoritative; always recomputable from metrics.
	IsBestPerforming bool `json:"isBestPerforming"`
	HasAnomalies     bool `json:"hasAnomalies"`

	CreatedBy    string     `json:"createdBy,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastModified time.Time  `json:"lastModified"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// EpochDigest returns the first, middle, and last epoch snapshots, bounding
// prompt size regardless of how long training ran. Returns nil when no epoch
// metrics were recorded.
func (e *Experiment) EpochDigest() []EpochSnapshot {
	n := len(e.EpochMetrics)
	if n == 0 {
		return nil
	}
	return []EpochSnapshot{
		e.EpochMetrics[0],
		e.EpochMetrics[n/2],
		e.EpochMetrics[n-1],
	}
}
