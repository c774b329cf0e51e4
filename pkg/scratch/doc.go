// Package scratch emulates vinyl control with jog wheels.
//
// A Controller turns jog wheel ticks into a smoothed playback velocity for
// a deck and writes it to the deck's scratch2 control while scratch2_enable
// is set. Smoothing uses an alpha-beta filter advanced by a 1ms process
// tick on the script context.
//
// The same machinery ramps a deck down (Brake, Spinback) or up (SoftStart)
// like a turntable losing or gaining power.
//
// Decks are numbered from 1; deck n uses the group "[Channeln]" and the
// controls play, rate_ratio, reverse, scratch2 and scratch2_enable.
package scratch
