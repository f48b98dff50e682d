package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Klingon-tech/xudt-tools/config"
	"github.com/Klingon-tech/xudt-tools/internal/rpcclient"
	"github.com/Klingon-tech/xudt-tools/pkg/address"
	"github.com/Klingon-tech/xudt-tools/pkg/tx"
	"github.com/Klingon-tech/xudt-tools/pkg/types"
	"github.com/Klingon-tech/xudt-tools/pkg/xudt"
)

func testnetCodec() *address.Codec {
	return config.Default(config.Testnet).AddressCodec()
}

func testnetToken(t *testing.T) types.Script {
	t.Helper()
	token, err := config.Default(config.Testnet).TokenScript()
	if err != nil {
		t.Fatalf("TokenScript: %v", err)
	}
	return token
}

func lockFor(b byte) types.Script {
	return config.DefaultLock(bytes.Repeat([]byte{b}, 20))
}

func addrFor(t *testing.T, b byte) string {
	t.Helper()
	addr, err := testnetCodec().Encode(lockFor(b))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return addr
}

func writeCells(t *testing.T, dir string, cells []types.Cell) string {
	t.Helper()
	data, err := json.Marshal(cells)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "cells.json")
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

// runApp runs the CLI against a fresh testnet data directory.
func runApp(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	full := append([]string{"xudt-cli", "--network", "testnet", "--datadir", dir, "--log-level", "error"}, args...)
	err := app.Run(full)
	return stdout.String(), stderr.String(), err
}

func TestInit_WritesConfigOnce(t *testing.T) {
	dir := t.TempDir()

	out, _, err := runApp(t, dir, "init")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(out, "xudt.conf") {
		t.Errorf("output = %q, want the config path", out)
	}

	values, err := config.LoadFile(filepath.Join(dir, "xudt.conf"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if values["network"] != "testnet" {
		t.Errorf("network = %q, want testnet", values["network"])
	}
	if values["token.args"] != config.DefaultTestToken {
		t.Errorf("token.args = %q, want %q", values["token.args"], config.DefaultTestToken)
	}

	if _, _, err := runApp(t, dir, "init"); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("second init err = %v, want already exists", err)
	}
}

func TestKeyAddress_HexKeyFile(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "dev.key")
	secret := "0xd00c06bfd800d27397002dca6fb0993d5ba6399b4238b2f29ee9deb97593d2bc\n"
	if err := os.WriteFile(keyFile, []byte(secret), 0600); err != nil {
		t.Fatal(err)
	}

	out, _, err := runApp(t, dir, "--key-file", keyFile, "key", "address")
	if err != nil {
		t.Fatalf("key address: %v", err)
	}
	want := []string{
		"ckt1qzda0cr08m85hc8jlnfp3zer7xulejywt49kt2rr0vthywaa50xwsqwgx292hnvmn68xf779vmzrshpmm6epn4c0cgwga",
		"0xc8328aabcd9b9e8e64fbc566c4385c3bdeb219d7",
	}
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("output = %q, want it to contain %s", out, w)
		}
	}
}

func TestBalance_CellsFile(t *testing.T) {
	dir := t.TempDir()
	token := testnetToken(t)
	cells := []types.Cell{
		{
			OutPoint: types.OutPoint{TxHash: types.Hash{0x01}},
			Output:   types.CellOutput{Capacity: 143 * tx.ShannonsPerCKB, Lock: lockFor(1), Type: &token},
			Data:     xudt.Encode(xudt.NewAmount(150_00000000)),
		},
		{
			OutPoint: types.OutPoint{TxHash: types.Hash{0x02}},
			Output:   types.CellOutput{Capacity: 143 * tx.ShannonsPerCKB, Lock: lockFor(1), Type: &token},
			Data:     xudt.Encode(xudt.NewAmount(25_00000000)),
		},
		{
			OutPoint: types.OutPoint{TxHash: types.Hash{0x03}},
			Output:   types.CellOutput{Capacity: 500 * tx.ShannonsPerCKB, Lock: lockFor(1)},
		},
	}
	cellsFile := writeCells(t, dir, cells)

	out, _, err := runApp(t, dir, "balance", "--cells-file", cellsFile, addrFor(t, 1), addrFor(t, 2))
	if err != nil {
		t.Fatalf("balance: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3: %q", len(lines), out)
	}
	for _, want := range []string{addrFor(t, 1), "175.00000000 XTT", "(2 cells)"} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("line 0 = %q, want it to contain %q", lines[0], want)
		}
	}
	if !strings.Contains(lines[1], "0.00000000 XTT") {
		t.Errorf("line 1 = %q, want a zero balance", lines[1])
	}
	if !strings.Contains(lines[2], "Total: 175.00000000 XTT") {
		t.Errorf("line 2 = %q, want the total", lines[2])
	}
}

func TestBalance_WrongNetworkAddress(t *testing.T) {
	dir := t.TempDir()
	cellsFile := writeCells(t, dir, nil)
	mainnetAddr, err := config.Default(config.Mainnet).AddressCodec().Encode(lockFor(1))
	if err != nil {
		t.Fatal(err)
	}

	_, _, err = runApp(t, dir, "balance", "--cells-file", cellsFile, mainnetAddr)
	if !errors.Is(err, address.ErrWrongNetwork) {
		t.Errorf("err = %v, want ErrWrongNetwork", err)
	}
}

func TestTransfer_DryRun(t *testing.T) {
	dir := t.TempDir()
	token := testnetToken(t)
	sender := lockFor(1)
	cells := []types.Cell{
		{
			OutPoint: types.OutPoint{TxHash: types.Hash{0x01}},
			Output:   types.CellOutput{Capacity: 143 * tx.ShannonsPerCKB, Lock: sender, Type: &token},
			Data:     xudt.Encode(xudt.NewAmount(1000_00000000)),
		},
		{
			OutPoint: types.OutPoint{TxHash: types.Hash{0x02}},
			Output:   types.CellOutput{Capacity: 1000 * tx.ShannonsPerCKB, Lock: sender},
		},
	}
	cellsFile := writeCells(t, dir, cells)

	out, summary, err := runApp(t, dir, "transfer",
		"--cells-file", cellsFile, "--dry-run", "--from", addrFor(t, 1),
		addrFor(t, 2)+"=1.5")
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	for _, want := range []string{"Transfer:     1.50000000 XTT", "Token change: 998.50000000 XTT"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary = %q, want it to contain %q", summary, want)
		}
	}

	var j rpcclient.TransactionJSON
	if err := json.Unmarshal([]byte(out), &j); err != nil {
		t.Fatalf("dry run output is not a transaction: %v", err)
	}
	transaction, err := rpcclient.DecodeTransaction(j)
	if err != nil {
		t.Fatalf("DecodeTransaction: %v", err)
	}

	if len(transaction.Inputs) != 2 || len(transaction.Outputs) != 3 {
		t.Fatalf("inputs %d, outputs %d, want 2 and 3", len(transaction.Inputs), len(transaction.Outputs))
	}
	if !transaction.Outputs[0].Lock.Equal(lockFor(2)) {
		t.Error("output 0 should pay the receiver")
	}
	if !transaction.Outputs[1].Lock.Equal(sender) {
		t.Error("output 1 should be the sender's token change")
	}
	if transaction.Outputs[2].Type != nil {
		t.Error("output 2 should be plain capacity change")
	}

	paid, err := xudt.DecodeAmount(transaction.OutputsData[0])
	if err != nil {
		t.Fatalf("DecodeAmount: %v", err)
	}
	if paid.String() != "150000000" {
		t.Errorf("paid = %s, want 150000000", paid)
	}

	outCap, err := transaction.TotalOutputCapacity()
	if err != nil {
		t.Fatal(err)
	}
	fee := 1143*tx.ShannonsPerCKB - outCap
	if fee == 0 || fee > config.DefaultMaxFee {
		t.Errorf("fee = %d, want in (0, %d]", fee, config.DefaultMaxFee)
	}
}

func TestTransfer_BadReceiver(t *testing.T) {
	dir := t.TempDir()
	cellsFile := writeCells(t, dir, nil)

	_, _, err := runApp(t, dir, "transfer", "--cells-file", cellsFile, "--dry-run",
		"--from", addrFor(t, 1), addrFor(t, 2))
	if err == nil || !strings.Contains(err.Error(), "expected <address>=<amount>") {
		t.Errorf("err = %v, want a receiver format error", err)
	}
}

func TestTopup_DryRunNothingToDo(t *testing.T) {
	dir := t.TempDir()
	token := testnetToken(t)
	cells := []types.Cell{{
		OutPoint: types.OutPoint{TxHash: types.Hash{0x01}},
		Output:   types.CellOutput{Capacity: 143 * tx.ShannonsPerCKB, Lock: lockFor(3), Type: &token},
		Data:     xudt.Encode(xudt.NewAmount(100_00000000)),
	}}
	cellsFile := writeCells(t, dir, cells)

	out, summary, err := runApp(t, dir, "topup", "--cells-file", cellsFile, "--dry-run",
		"--from", addrFor(t, 1), "--target", "100", addrFor(t, 3))
	if err != nil {
		t.Fatalf("topup: %v", err)
	}
	if out != "" {
		t.Errorf("stdout = %q, want empty", out)
	}
	if !strings.Contains(summary, "at or above the target") {
		t.Errorf("summary = %q, want nothing-to-do message", summary)
	}
}
