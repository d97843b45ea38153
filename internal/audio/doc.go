// Package audio implements the PCM engine behind editing, chunk reassembly,
// and music mixing. Clips hold interleaved 16-bit samples decoded from WAV;
// all joins use short in-place declick ramps so operations never change the
// combined sample count.
package audio
