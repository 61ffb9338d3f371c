// Package events defines the typed pipeline event contract.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - button.*
//   - run.*
//
// Semantics used across the package:
//
//   - Activation: one debounced, intentional button press.
//   - Run: one complete capture-to-playback attempt for a single activation.
//   - Superseded: the run was cancelled in favor of a newer activation.
//
// button events
//
//   - Activation (button.activation): a clean press survived the debounce
//     window and the refractory period.
//
// run events
//
//   - RunStarted (run.started): a run left Idle and entered Capturing.
//   - CaptureCompleted (run.capture_completed): the camera produced a frame.
//   - DescriptionReceived (run.description_received): the remote service
//     returned a scene description.
//   - SynthesisCompleted (run.synthesis_completed): speech audio is ready.
//   - PlaybackEnded (run.playback_ended): speech playback drained fully.
//   - RunCompleted (run.completed): the run returned to Idle successfully.
//   - RunFailed (run.failed): the run returned to Idle through the failure
//     path; includes the stage that failed.
//   - RunSuperseded (run.superseded): the run was cancelled by a newer
//     activation.
//   - RunDropped (run.dropped): a new activation was discarded because a run
//     was active and the queue policy is in effect.
package events
