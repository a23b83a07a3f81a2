// Package wavpack provides the core of a WavPack (http://www.wavpack.com/)
// hybrid lossless audio codec: the block-structured container, the
// lossless/hybrid encoder and decoder for integer PCM audio, and the
// multi-pass adaptive decorrelation plus entropy coding that together
// produce the compressed bitstream.
//
// Encoding lives in package pack, decoding in package unpack. This
// package holds the types and constants shared by both: Config, the
// block flags bitfield, hard limits, the sample-rate table, and the
// error kinds returned across the API.
package wavpack
