// Package ocr defines the contract between the session controller and a
// Recognition Engine.
//
// An Engine turns the bytes behind an Image into text. Engines are opaque to
// the rest of the server: they may run Tesseract in-process, call a local
// vision model, or anything else, as long as they honor three rules:
//
//   - Recognize blocks until the text is available or the call fails.
//   - onProgress is called zero or more times from the calling goroutine
//     before Recognize returns. Events whose Progress is nil carry a status
//     only; callers are free to ignore them.
//   - ctx cancellation is advisory. Engines that can stop early should, but a
//     caller must not rely on it.
//
// # Language Codes
//
// Languages use Tesseract codes ("eng", "deu", "fra", ...). The server runs
// with one fixed code chosen at startup.
//
// # Implementations
//
//   - tesseract: gosseract/v2 bindings (requires cgo and libtesseract)
//   - ollama: a vision model served by a local Ollama instance
//
// The engine subpackage picks one based on configuration.
package ocr
