// Package session implements the image recognition session controller.
//
// A Session owns at most one image handle and drives a single image-to-text
// attempt through four states:
//
//	Empty -> ImageLoaded -> Recognizing -> Done
//
//   - SelectImage moves any state to ImageLoaded, releasing the previous handle.
//   - StartRecognition moves ImageLoaded to Recognizing; it is a no-op anywhere
//     else, including Done (clear or reselect to run again).
//   - Completion moves Recognizing to Done; failure moves it back to
//     ImageLoaded so the caller can retry.
//   - Clear moves any state to Empty.
//
// # Handle Ownership
//
// Every handle the session allocates is released exactly once: when it is
// replaced, when the session is cleared, or when the session is closed.
//
// # Stale Recognitions
//
// Each image selection starts a new generation. A recognition that completes
// after its image was replaced or cleared never touches the session; its Job
// reports ErrSuperseded instead. The stale job's context is cancelled so
// cooperative engines can stop early.
//
// # Observers
//
// Subscribe registers a callback that receives a Snapshot after every state
// change, in commit order. Callbacks run outside the Session's locks, so they
// may call Snapshot or even mutate the Session. When several goroutines change
// the Session at once, one of them delivers for all, and a mutator may return
// before its own change has reached subscribers.
package session
