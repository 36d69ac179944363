// Package imaging manages the image bytes a session works on.
//
// Images enter the server as raw bytes (read from a path the client names, or
// decoded from base64) and are held behind revocable handles, the server-side
// equivalent of a browser object URL. A handle is identified by an opaque
// "blob:<uuid>" string and must be released explicitly; nothing is reclaimed
// by finalizers.
//
// # Handle Lifetime
//
//	store := imaging.NewStore()
//	h := store.Create(data) // never fails, copies data
//	rc, err := h.Open()     // read the bytes (any number of times)
//	...
//	h.Release()             // first call frees the bytes
//	h.Release()             // later calls return ErrReleased
//
// Readers opened before Release keep working on their own view of the bytes;
// Open after Release fails with ErrReleased.
//
// # Thread Safety
//
// Store and Handle are safe for concurrent use.
//
// # Formats
//
// Describe recognizes PNG, JPEG, GIF, BMP, TIFF and WebP. Other formats can
// still be held in a handle; only the metadata lookup fails for them.
package imaging
