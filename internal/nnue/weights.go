package nnue

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// LoadWeights loads network weights from filename. The file has no
// header: a flat little-endian stream of FTWeights, FTBias, L1Weights,
// L1Bias in that order, sized entirely by the architecture constants in
// nnue.go. A ".zst" extension transparently zstd-decompresses the
// stream first, so a network can be shipped compressed and loaded with
// `EvalFile net.nnue.zst`.
func (n *Network) LoadWeights(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("open weights file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(filename, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("open zstd stream: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	return n.loadFromReader(r)
}

func (n *Network) loadFromReader(r io.Reader) error {
	if err := binary.Read(r, binary.LittleEndian, &n.FTWeights); err != nil {
		return fmt.Errorf("read feature transformer weights: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &n.FTBias); err != nil {
		return fmt.Errorf("read feature transformer bias: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &n.L1Weights); err != nil {
		return fmt.Errorf("read output layer weights: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &n.L1Bias); err != nil {
		return fmt.Errorf("read output layer bias: %w", err)
	}
	return nil
}

// SaveWeights writes the network in the same headerless format
// LoadWeights reads, optionally zstd-compressing when filename ends in
// ".zst".
func (n *Network) SaveWeights(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create weights file: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	var enc *zstd.Encoder
	if strings.HasSuffix(filename, ".zst") {
		enc, err = zstd.NewWriter(f)
		if err != nil {
			return fmt.Errorf("open zstd writer: %w", err)
		}
		w = enc
	}

	if err := n.writeTo(w); err != nil {
		return err
	}
	if enc != nil {
		return enc.Close()
	}
	return nil
}

func (n *Network) writeTo(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, &n.FTWeights); err != nil {
		return fmt.Errorf("write feature transformer weights: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, &n.FTBias); err != nil {
		return fmt.Errorf("write feature transformer bias: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, &n.L1Weights); err != nil {
		return fmt.Errorf("write output layer weights: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, &n.L1Bias); err != nil {
		return fmt.Errorf("write output layer bias: %w", err)
	}
	return nil
}
