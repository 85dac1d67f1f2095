// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

/*
*
The file where main is located, as an example
 1. Load the run configuration (connConfig.json, or the path given as first argument)
 2. Run the selected variant up to the selected stage
 1. both: every actor in this process, over a loopback, Runs times in parallel
 2. device: the user, dialing the reader over TLS
 3. reader: the authority, seller, validator and police, listening for a device
 3. Log the summary, save the report and serve it over HTTP when configured
*/
package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/communication"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/memory"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/metrics"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/report"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/save"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/pkg/transport"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/protocols"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/protocols/config"
	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/protocols/validation"
)

const stageEcho = "echo"

// printTips() prints the stages which can be typed on side both.
func printTips() {
	fmt.Println("\nPlease type the name of the stage you want to execute:")
	fmt.Println("[-] echo")
	fmt.Println("[-] setup")
	fmt.Println("[-] register")
	fmt.Println("[-] issue")
	fmt.Println("[-] validate (or all)")
	fmt.Println("[-] Ctrl+c to exit")
	fmt.Printf(">>> ")
}

// runner holds everything one process needs to execute stages.
type runner struct {
	conf    communication.LocalConfig
	variant protocols.Variant
	side    protocols.Side
	cfg     config.Config
	timers  *metrics.Timers
	record  *save.Record
}

func newRunner(conf communication.LocalConfig) (*runner, error) {
	name := conf.Variant
	if name == "" {
		name = protocols.DefaultVariant
	}
	v, err := protocols.LookupVariant(name)
	if err != nil {
		log.Errorf("known variants are %v", protocols.Variants())
		return nil, err
	}
	side := protocols.Both
	if conf.Side != "" {
		if side, err = protocols.ParseSide(conf.Side); err != nil {
			return nil, err
		}
	}
	cfg, err := config.FromParams(conf.Params)
	if err != nil {
		return nil, err
	}
	return &runner{
		conf:    conf,
		variant: v,
		side:    side,
		cfg:     cfg,
		timers:  metrics.New(),
		record:  &save.Record{Variant: v.Name, Side: side.String(), Params: cfg.Params()},
	}, nil
}

// finish folds mem into the report of the process.
func (r *runner) finish(mem *memory.Shared) {
	if mem == nil {
		return
	}
	r.timers.Merge(mem.Timers.Snapshot())
	r.record.Add(mem)
}

// execute runs the variant up to stageName.
func (r *runner) execute(stageName string) error {
	stageName = strings.ToLower(strings.TrimSpace(stageName))
	r.record.Stage = stageName
	if stageName == stageEcho {
		return r.echo()
	}
	stage, err := protocols.ParseStage(stageName)
	if err != nil {
		return err
	}
	log.Infof("step into %s up to stage %v as %v", r.variant.Name, stage, r.side)
	if r.side == protocols.Both {
		return r.benchmark(stage)
	}
	return r.split(stage)
}

// benchmark executes conf.Runs independent runs of every actor over loopbacks.
func (r *runner) benchmark(stage protocols.Stage) error {
	runs := r.conf.Runs
	if runs < 1 {
		runs = 1
	}
	mems := make([]*memory.Shared, runs)
	var g errgroup.Group
	for i := 0; i < runs; i++ {
		i := i
		g.Go(func() error {
			mem, err := protocols.Initialise(r.variant, r.cfg, protocols.Options{Side: protocols.Both, Mnemonic: r.conf.Mnemonic})
			if err != nil {
				return err
			}
			mems[i] = mem
			if err = protocols.RunVariant(r.variant, stage, mem, protocols.Both, transport.NewLoopback()); err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			return nil
		})
	}
	err := g.Wait()
	for _, mem := range mems {
		r.finish(mem)
	}
	return err
}

// split executes one side of a run over a network connection.
func (r *runner) split(stage protocols.Stage) error {
	trust, err := r.conf.Trust()
	if err != nil {
		return err
	}
	mem, err := protocols.Initialise(r.variant, r.cfg, protocols.Options{Side: r.side, Mnemonic: r.conf.Mnemonic, TrustKey: trust})
	if err != nil {
		return err
	}
	if r.side == protocols.Reader {
		log.Infof("authority key %s", hex.EncodeToString(mem.TrustKey.SerializeCompressed()))
	}
	conn, err := r.conf.Connect(r.side == protocols.Reader)
	if err != nil {
		return err
	}
	defer conn.Shutdown()

	err = protocols.RunVariant(r.variant, stage, mem, r.side, conn)
	r.finish(mem)
	return err
}

func (r *runner) echo() error {
	mem := memory.New(r.cfg, nil)
	defer r.finish(mem)
	if r.side == protocols.Both {
		ok, err := protocols.RunEcho(stageEcho, protocols.Echo(), mem, transport.NewLoopback())
		return echoResult(ok, err)
	}
	conn, err := r.conf.Connect(r.side == protocols.Reader)
	if err != nil {
		return err
	}
	defer conn.Shutdown()
	states := protocols.Echo()
	if r.side == protocols.Reader {
		states = protocols.EchoPeer()
	}
	return echoResult(protocols.RunEcho(stageEcho, states, mem, conn))
}

func echoResult(ok bool, err error) error {
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("echo: peer did not answer")
	}
	log.Infoln("successfully echoed")
	return nil
}

// summary logs the validations of the process.
func (r *runner) summary() {
	valid, doubleSpent := validation.Summary(r.record.Reports)
	for _, rep := range r.record.Reports {
		log.Debugln(validation.String(rep))
	}
	log.Infof("%s: %d runs, %d failed, %d/%d validations accepted, %d double spends",
		r.variant.Name, r.record.Runs, r.record.Failed, valid, len(r.record.Reports), doubleSpent)
	for _, id := range r.record.Traced {
		log.Infof("%s: traced holder %s", r.variant.Name, id)
	}
	snapshot := r.timers.Snapshot()
	for _, name := range metrics.Names(snapshot) {
		e := snapshot[name]
		log.Infof("%-28s count=%d mean=%v bytes=%d", name, e.Count, e.Mean(), e.Bytes)
	}
}

// save writes the report when a path is configured.
func (r *runner) save() {
	if r.conf.ReportPath == "" {
		return
	}
	if err := save.WriteRecord(r.conf.ReportPath, r.record); err != nil {
		log.Errorf("fail to save report: %v", err)
	}
}

// interactive reads stage names from stdin until it is closed.
func (r *runner) interactive() {
	reader := bufio.NewReader(os.Stdin)
	for {
		printTips()
		line, _, err := reader.ReadLine()
		if err != nil {
			log.Infoln("stdin closed")
			return
		}
		if err = r.execute(string(line)); err != nil {
			log.Errorln(err)
		}
		r.summary()
		r.save()
	}
}

// The main function is the entry point of the program.
func main() {
	path := ""
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	conf, err := communication.LoadConnConfig(path)
	if err != nil {
		log.Fatalln(err)
	}
	r, err := newRunner(conf)
	if err != nil {
		log.Fatalln(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if conf.ReportAddr != "" {
		h := report.NewHandler(r.variant.Name+" "+r.side.String(), r.timers.Snapshot)
		go func() {
			if err := report.Serve(ctx, conf.ReportAddr, h); err != nil {
				log.Errorf("report server: %v", err)
			}
		}()
	}

	// side both without a stage is driven from the command line
	if conf.Stage == "" && r.side == protocols.Both {
		r.interactive()
		return
	}
	stage := conf.Stage
	if stage == "" {
		stage = protocols.StageValidate.String()
	}
	err = r.execute(stage)
	r.summary()
	r.save()
	if err != nil {
		stop()
		log.Fatalln(err)
	}
	if conf.ReportAddr != "" {
		log.Infof("report available on http://%s, Ctrl+c to exit", conf.ReportAddr)
		<-ctx.Done()
	}
}
