package receptor_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/alex-galey/docking-mcp/internal/receptor"
	"github.com/alex-galey/docking-mcp/internal/runner"
	"github.com/alex-galey/docking-mcp/internal/structure"
	"github.com/alex-galey/docking-mcp/internal/toolchain"
	"github.com/alex-galey/docking-mcp/internal/vina"
)

type conversion struct {
	input  string
	output string
	flags  []string
}

// fakeConverter writes a placeholder output file unless err is set.
type fakeConverter struct {
	calls []conversion
	err   error
}

func (f *fakeConverter) Convert(ctx context.Context, input, output string, flags ...string) (*runner.Result, error) {
	f.calls = append(f.calls, conversion{input: input, output: output, flags: flags})
	if f.err != nil {
		return nil, f.err
	}
	return &runner.Result{}, os.WriteFile(output, []byte("REMARK converted\n"), 0o644)
}

func hetatm(serial int, x, y, z float64) string {
	return fmt.Sprintf("HETATM%5d  C1  LIG A 900    %8.3f%8.3f%8.3f  1.00  0.00           C", serial, x, y, z)
}

func atom(serial int, x, y, z float64) string {
	return fmt.Sprintf("ATOM  %5d  CA  ALA A%4d    %8.3f%8.3f%8.3f  1.00  0.00           C", serial, serial, x, y, z)
}

func writePDB(dir, name string, lines ...string) string {
	path := filepath.Join(dir, name)
	Expect(os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\nEND\n"), 0o644)).To(Succeed())
	return path
}

var _ = Describe("Preparer", func() {
	var (
		ctx       context.Context
		dir       string
		outDir    string
		converter *fakeConverter
		preparer  *receptor.Preparer
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir = GinkgoT().TempDir()
		outDir = filepath.Join(dir, "out")
		converter = &fakeConverter{}
		preparer = receptor.NewPreparer(converter, slog.New(slog.NewTextHandler(io.Discard, nil)), receptor.DefaultOptions())
	})

	It("converts the receptor and writes parameters around the bound ligand", func() {
		pdb := writePDB(dir, "1abc.pdb",
			atom(1, 50, 50, 50),
			hetatm(2, 0, 0, 0),
			hetatm(3, 2, 0, 0),
			hetatm(4, 0, 2, 0),
		)

		result, err := preparer.Prepare(ctx, pdb, outDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(result.ConvertedPath).To(Equal(filepath.Join(outDir, "1abc.pdbqt")))
		Expect(result.ParamFilePath).To(Equal(filepath.Join(outDir, "vina.conf")))
		Expect(result.LigandAtoms).To(Equal(3))
		Expect(result.UsedFallback).To(BeFalse())
		Expect(result.Size).To(Equal(structure.Box3{X: 22, Y: 22, Z: 20}))

		Expect(converter.calls).To(HaveLen(1))
		Expect(converter.calls[0].input).To(Equal(pdb))
		Expect(converter.calls[0].output).To(Equal(result.ConvertedPath))
		Expect(converter.calls[0].flags).To(Equal([]string{receptor.RigidFlag}))

		params, err := vina.ReadFile(result.ParamFilePath)
		Expect(err).NotTo(HaveOccurred())
		Expect(params.Receptor).To(Equal(result.ConvertedPath))
		Expect(params.Center.X).To(BeNumerically("~", 0.667, 0.001))
		Expect(params.Center.Y).To(BeNumerically("~", 0.667, 0.001))
		Expect(params.Exhaustiveness).To(Equal(8))
		Expect(params.NumModes).To(Equal(9))
		Expect(params.EnergyRange).To(Equal(3))
	})

	It("uses the default box size around a lone heteroatom", func() {
		preparer = receptor.NewPreparer(converter, slog.New(slog.NewTextHandler(io.Discard, nil)), receptor.Options{
			Padding:        4,
			Exhaustiveness: 8,
			NumModes:       9,
			EnergyRange:    3,
		})
		pdb := writePDB(dir, "zn.pdb", atom(1, 50, 50, 50), hetatm(2, 1, 2, 3))

		result, err := preparer.Prepare(ctx, pdb, outDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.UsedFallback).To(BeTrue())
		Expect(result.LigandAtoms).To(Equal(1))
		Expect(result.Center).To(Equal(structure.Point3{X: 1, Y: 2, Z: 3}))
		Expect(result.Size).To(Equal(structure.Box3{X: 20, Y: 20, Z: 20}))
	})

	It("falls back to the default search space without heteroatoms", func() {
		pdb := writePDB(dir, "apo.pdb", atom(1, 5, 5, 5), atom(2, 6, 6, 6))

		result, err := preparer.Prepare(ctx, pdb, outDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.UsedFallback).To(BeTrue())
		Expect(result.Center).To(Equal(structure.Point3{}))
		Expect(result.Size).To(Equal(structure.Box3{X: 20, Y: 20, Z: 20}))

		data, err := os.ReadFile(result.ParamFilePath)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("center_x = 0.000\n"))
		Expect(string(data)).To(ContainSubstring("size_z = 20.000\n"))
	})

	It("produces byte-identical outputs when re-run", func() {
		pdb := writePDB(dir, "1abc.pdb", hetatm(1, 1.25, -3.5, 7), hetatm(2, 4, 4, 4))

		first, err := preparer.Prepare(ctx, pdb, outDir)
		Expect(err).NotTo(HaveOccurred())
		before, err := os.ReadFile(first.ParamFilePath)
		Expect(err).NotTo(HaveOccurred())

		second, err := preparer.Prepare(ctx, pdb, outDir)
		Expect(err).NotTo(HaveOccurred())
		after, err := os.ReadFile(second.ParamFilePath)
		Expect(err).NotTo(HaveOccurred())

		Expect(second).To(Equal(first))
		Expect(after).To(Equal(before))
	})

	It("creates the output directory", func() {
		pdb := writePDB(dir, "1abc.pdb", hetatm(1, 0, 0, 0))
		nested := filepath.Join(outDir, "a", "b")

		_, err := preparer.Prepare(ctx, pdb, nested)
		Expect(err).NotTo(HaveOccurred())
		Expect(filepath.Join(nested, "vina.conf")).To(BeARegularFile())
	})

	It("fails at the input stage for a missing structure", func() {
		_, err := preparer.Prepare(ctx, filepath.Join(dir, "missing.pdb"), outDir)

		var prepErr *receptor.PreparationError
		Expect(errors.As(err, &prepErr)).To(BeTrue())
		Expect(prepErr.Stage).To(Equal(receptor.StageInput))
		Expect(prepErr.Detail).To(Equal("missing file"))
		Expect(converter.calls).To(BeEmpty())
	})

	It("fails at the conversion stage and writes no parameters", func() {
		pdb := writePDB(dir, "1abc.pdb", hetatm(1, 0, 0, 0))
		converter.err = &runner.ExternalToolFailure{Command: "obabel", ExitCode: 1, Stderr: "0 molecules converted"}

		_, err := preparer.Prepare(ctx, pdb, outDir)
		Expect(receptor.StageOf(err)).To(Equal(receptor.StageConversion))
		Expect(runner.IsExternalToolFailure(err)).To(BeTrue())
		Expect(filepath.Join(outDir, "vina.conf")).NotTo(BeAnExistingFile())
	})

	It("fails at the geometry stage for a malformed structure", func() {
		pdb := writePDB(dir, "broken.pdb", "HETATM    1  C1  LIG A 900    not-a-number")

		_, err := preparer.Prepare(ctx, pdb, outDir)
		Expect(receptor.StageOf(err)).To(Equal(receptor.StageGeometry))
		var parseErr *structure.ParseError
		Expect(errors.As(err, &parseErr)).To(BeTrue())
	})

	It("fails at the parameters stage when the file cannot be written", func() {
		pdb := writePDB(dir, "1abc.pdb", hetatm(1, 0, 0, 0))
		Expect(os.MkdirAll(filepath.Join(outDir, "vina.conf"), 0o755)).To(Succeed())

		_, err := preparer.Prepare(ctx, pdb, outDir)
		Expect(receptor.StageOf(err)).To(Equal(receptor.StageParameters))
		var writeErr *vina.WriteError
		Expect(errors.As(err, &writeErr)).To(BeTrue())
	})
})

type stubResolver struct {
	path string
	err  error
}

func (s stubResolver) Resolve(ctx context.Context, key string) (string, error) {
	return s.path, s.err
}

type recordingRunner struct {
	commands []runner.Command
}

func (r *recordingRunner) Run(ctx context.Context, cmd runner.Command) (*runner.Result, error) {
	r.commands = append(r.commands, cmd)
	return &runner.Result{}, nil
}

var _ = Describe("OpenBabel", func() {
	It("invokes the resolved executable with the rigid receptor flag", func() {
		r := &recordingRunner{}
		obabel := receptor.NewOpenBabel(stubResolver{path: "/opt/openbabel/bin/obabel"}, r)

		_, err := obabel.Convert(context.Background(), "in.pdb", "out/in.pdbqt", receptor.RigidFlag)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.commands).To(HaveLen(1))
		Expect(r.commands[0].Name).To(Equal("/opt/openbabel/bin/obabel"))
		Expect(r.commands[0].Args).To(Equal([]string{"in.pdb", "-O", "out/in.pdbqt", "-xr"}))
	})

	It("surfaces an unresolved converter", func() {
		r := &recordingRunner{}
		obabel := receptor.NewOpenBabel(stubResolver{err: &toolchain.NotFoundError{Key: "obabel"}}, r)

		_, err := obabel.Convert(context.Background(), "in.pdb", "in.pdbqt")
		Expect(toolchain.IsNotFoundError(err)).To(BeTrue())
		Expect(r.commands).To(BeEmpty())
	})
})
