// Command boardconsole is a reference board: it wires a kernel.Kernel to
// an alarm capsule, a console capsule, and two fixture processes, then
// exposes a read-only REPL for inspecting live process.Record state
// (spec §7's process console) while the kernel runs in the background.
//
// It deliberately has no board-specific HAL and builds its two
// processes directly rather than from a real flash image: loading a
// real TBF-packed image into a RAM pool is tbf.ScanFlash plus tbf.Load's
// job, exercised end-to-end in tbf's own test suite rather than here.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeycumines/go-prompt"
	zlog "github.com/rs/zerolog"
	"golang.org/x/exp/slices"

	"github.com/tock/tock-sub011/capsule/alarm"
	"github.com/tock/tock-sub011/capsule/console"
	"github.com/tock/tock-sub011/kernel"
	"github.com/tock/tock-sub011/klog"
	"github.com/tock/tock-sub011/klog/zerolog"
	"github.com/tock/tock-sub011/mpu"
	"github.com/tock/tock-sub011/process"
	"github.com/tock/tock-sub011/syscallabi"
)

const (
	driverAlarm   = 1
	driverConsole = 2
)

func main() {
	logger := zerolog.New(zlog.New(os.Stderr).With().Timestamp().Logger())
	klog.SetDefault(logger)

	runner, records := buildBoard(logger)

	k, err := kernel.New(runner, kernel.WithLogger(logger), kernel.WithQuantum(5))
	if err != nil {
		fmt.Fprintln(os.Stderr, "board: creating kernel:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := k.Run(ctx); err != nil {
			klog.Error("kernel run exited", klog.F("error", err.Error()))
		}
	}()

	p := prompt.New(
		makeExecutor(k, records),
		prompt.WithPrefix("tock> "),
	)
	p.Run()

	_ = k.Shutdown(context.Background())
}

func buildBoard(logger klog.Logger) (*syscallabi.Runner, map[string]*process.Record) {
	dispatcher := syscallabi.NewDispatcher(mpu.NewSimMPU())

	alarmCapsule := alarm.New()
	dispatcher.Register(driverAlarm, alarmCapsule)

	consoleCapsule := console.New(os.Stdout, func(proc *process.Record, base, length uintptr) ([]byte, error) {
		// The simulator keeps no real flat address space; the fixture
		// processes below stash their pending write in a closure instead
		// of real memory, so this hook is unused in this reference board
		// but kept to show the shape a HAL-backed board would fill in.
		return nil, process.ErrNoSuchBuffer
	})
	consoleCapsule.SetDriverNumber(driverConsole)
	dispatcher.Register(driverConsole, consoleCapsule)

	runner := syscallabi.NewRunner(dispatcher)
	records := make(map[string]*process.Record)

	blink := process.NewRecord(0, "blink", fixtureLayout(0), process.NewRestartLimiter(10*time.Second, 3), logger)
	runner.Load(blink, blinkProgram(alarmCapsule))
	records["blink"] = blink

	echo := process.NewRecord(1, "echo", fixtureLayout(1), process.NewRestartLimiter(10*time.Second, 3), logger)
	runner.Load(echo, echoProgram())
	records["echo"] = echo

	return runner, records
}

func fixtureLayout(slot uint8) process.Layout {
	base := uintptr(0x20000000) + uintptr(slot)*0x1000
	return process.Layout{
		Flash:       mpu.Region{Base: uintptr(0x08000000) + uintptr(slot)*0x4000, Length: 0x4000, Permissions: mpu.PermRead | mpu.PermExecute},
		RAM:         mpu.Region{Base: base, Length: 0x1000, Permissions: mpu.PermRead | mpu.PermWrite},
		MemoryBreak: base + 0x200,
	}
}

// blinkProgram models a process that arms a one-shot alarm every time
// it runs, then yields.
func blinkProgram(a *alarm.Capsule) syscallabi.Program {
	return func(d *syscallabi.Dispatcher, proc *process.Record) kernel.RunOutcome {
		ret := d.Command(proc, driverAlarm, alarm.CmdSetAt, a.Now()+4, 0)
		_ = ret
		d.Yield(proc)
		return kernel.OutcomeYielded
	}
}

// echoProgram models a process that simply yields every dispatch,
// waiting for whatever upcalls the console capsule delivers it.
func echoProgram() syscallabi.Program {
	return func(d *syscallabi.Dispatcher, proc *process.Record) kernel.RunOutcome {
		d.Yield(proc)
		return kernel.OutcomeYielded
	}
}

func makeExecutor(k *kernel.Kernel, records map[string]*process.Record) func(string) {
	return func(line string) {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			return
		case line == "ps":
			names := make([]string, 0, len(records))
			for name := range records {
				names = append(names, name)
			}
			// Map iteration order is randomized; sort so "ps" output is
			// stable across invocations.
			slices.Sort(names)
			for _, name := range names {
				rec := records[name]
				fmt.Printf("%-8s slot=%d gen=%d state=%s\n", name, rec.ID().Slot, rec.ID().Generation, rec.State())
			}
		case line == "state":
			fmt.Println(k.State())
		case strings.HasPrefix(line, "inspect "):
			name := strings.TrimSpace(strings.TrimPrefix(line, "inspect "))
			rec, ok := records[name]
			if !ok {
				fmt.Println("no such process:", name)
				return
			}
			fmt.Printf("%s: state=%s epoch=%d grants=%d buffers=%d pending-upcalls=%d\n",
				name, rec.State(), rec.Epoch(), rec.Grants().Count(), rec.Buffers().Len(), rec.Pending().Len())
		case line == "quit" || line == "exit":
			os.Exit(0)
		default:
			fmt.Println("commands: ps, state, inspect <name>, quit")
		}
	}
}
