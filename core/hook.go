package core

import "github.com/sarchlab/akita/v4/sim"

// HookPosMispredict marks a branch resolved against its prediction. The item
// is a MispredictInfo.
var HookPosMispredict = &sim.HookPos{Name: "Mispredict"}

// HookPosForward marks a value bypassed to decode. The item is a
// ForwardInfo.
var HookPosForward = &sim.HookPos{Name: "Forward"}

// HookPosRetire marks an instruction leaving write-back. The item is the
// instr.Inst.
var HookPosRetire = &sim.HookPos{Name: "Retire"}

// HookPosHalt marks the exit system call. The item is the exit code.
var HookPosHalt = &sim.HookPos{Name: "Halt"}
