// Package corrpool implements the buffering core of the software correlator:
// a fixed-capacity pool of raw-sample buffers shared between real-time
// receiver goroutines (fillers) and a single correlation or capture consumer.
//
// Every buffer cycles through four states:
//
//	Free -> BeingFilled -> Ready -> BeingProcessed -> Free
//
// A filler acquires a Free buffer, writes a header and samples into it and
// publishes it. Publishing runs the HeaderPreprocessor, which may remap or
// reject the header; accepted buffers become Ready and are indexed under
// their (antenna, channel, beam) key. A newer buffer for an occupied key
// supersedes the older one, which goes straight back to Free.
//
// The consumer blocks in WaitForCompleteSet until the MatchStrategy finds a
// (channel, beam) key with every antenna present, or in WaitForAnyReady when
// capturing single buffers. Matched buffers are BeingProcessed until the
// consumer releases them.
//
// Status table and ready index share one mutex and one condition variable.
// AcquireForFill and Publish never block; overflow is reported to the filler
// as "no buffer" and the sample is dropped.
//
// Calling Publish, Discard or Release on a buffer the caller does not own is
// a programming error and panics with an *errors.EnhancedError in the state
// category.
package corrpool
