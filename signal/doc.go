// Package signal generates a continuous scalar sample stream from a set of
// composable components (noise, tone, pulse trains, chirp). The [Engine] sums
// every enabled component into fixed-size chunks on a logical sample-count
// clock, so generated phase is exactly reproducible regardless of scheduling
// jitter. All engine state sits behind one mutex; component math runs
// unlocked on a captured snapshot of the configuration.
package signal
