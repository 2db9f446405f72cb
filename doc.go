// Package stubpack packages an application tree into a single executable.
//
// A packaged executable is a runtime stub followed by a directive section
// and an 8-byte footer:
//
//	[stub image][directive section][footer]
//
// The directive section is a stream of installation directives: create a
// directory, create a file, set an environment variable, launch a process.
// It is usually compressed as a unit and wrapped in a single Decompress
// directive. When the stub runs it finds its own footer, extracts the tree
// into a temporary directory and starts the packaged program there.
//
// The footer survives Authenticode signing. A signer appends its
// certificate table after the footer and records its size in the PE
// security directory; the stub reads that entry and skips the signature.
//
// # Quick Start
//
// Build from a manifest:
//
//	m, err := manifest.Load("stubpack.yaml")
//	if err != nil {
//	    return err
//	}
//	res, err := stubpack.BuildManifest(ctx, "app.exe", stub, m,
//	    stubpack.WithCompression(stubpack.CompressionLZMA),
//	)
//
// Or drive the encoder directly:
//
//	out, err := stubpack.Build(ctx, stub, func(enc *stubpack.Encoder) error {
//	    if err := enc.CreateFileFrom("app.rb", `src\app.rb`); err != nil {
//	        return err
//	    }
//	    return enc.CreateProcess("\xff\\bin\\ruby.exe", "ruby.exe \xff\\src\\app.rb")
//	})
//
// Use [Inspect] to decode a packaged executable without running it.
package stubpack
