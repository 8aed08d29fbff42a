// Package artifact contains implementations of core.ArtifactStore, used by
// the runner to keep each run's final report as "<runID>.md".
package artifact
