package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/adiabat/bech32"

	"github.com/Davidson-Souza/floresta-go/csn"
)

func main() {
	if err := florestadMain(); err != nil {
		os.Exit(1)
	}
}

func florestadMain() error {
	cfg, nodeCfg, err := loadConfig()
	if err != nil {
		return err
	}

	err = initLogRotator(filepath.Join(cfg.DataDir, "logs", "florestad.log"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	defer logRotator.Close()
	if !setLogLevel(cfg.DebugLevel) {
		fmt.Fprintf(os.Stderr, "invalid debug level %s\n", cfg.DebugLevel)
		return fmt.Errorf("invalid debug level")
	}

	sig := make(chan bool, 1)
	handleIntSig(sig)

	node, err := csn.New(nodeCfg)
	if err != nil {
		csnLog.Errorf("can't start node: %s", err)
		return err
	}
	defer node.Close()

	for _, addr := range cfg.WatchAddrs {
		err := watchAddress(node, addr)
		if err != nil {
			csnLog.Errorf("can't watch %s: %s", addr, err)
			return err
		}
	}
	if cfg.GenerateAddr {
		addr, err := node.GenerateRandomAddress()
		if err != nil {
			csnLog.Errorf("can't generate address: %s", err)
			return err
		}
		fmt.Println(addr)
	}

	if cfg.Blocks != "" {
		err = feedBlocks(node, cfg.Blocks, sig)
		if err != nil {
			csnLog.Errorf("sync stopped: %s", err)
			return err
		}
		node.ToggleIBD(false)
	}

	tip, height := node.GetBestBlock()
	csnLog.Infof("best block %s height %d on %s", tip, height, node.Network())
	csnLog.Infof("target %s difficulty %d", node.Target(), node.Difficulty())
	if txids := node.OurTxs(); txids != "" {
		fmt.Printf("found transactions:\n%s\n", txids)
	}
	return nil
}

// watchAddress registers an address with the node's wallet.  Bech32
// segwit addresses decode straight to the output script they pay, so
// those skip the generic address parser.
func watchAddress(node *csn.FlorestaChain, addr string) error {
	script, err := bech32.SegWitAddressDecode(addr)
	if err == nil {
		node.WatchScript(script)
		return nil
	}
	return node.WatchAddress(addr)
}

// feedBlocks reads json block envelopes, one per line, and hands each
// to the node.  A failed block stops the feed, anything after it would
// build on a tip we don't have.
func feedBlocks(node *csn.FlorestaChain, path string, sig chan bool) error {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	scanner := bufio.NewScanner(r)
	// envelopes carry a whole block in hex, the default line limit is
	// far too small
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)

	count := 0
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		err := node.AcceptBlock(line)
		if err != nil {
			return fmt.Errorf("block %d: %w", count+1, err)
		}
		count++
		select {
		case <-sig:
			csnLog.Infof("interrupt, stopping after %d blocks", count)
			return nil
		default:
		}
	}
	err := scanner.Err()
	if err != nil {
		return err
	}
	csnLog.Infof("processed %d blocks", count)
	return nil
}

func handleIntSig(sig chan bool) {
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	go func() {
		<-s
		sig <- true
	}()
}
