package toolchain_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/alex-galey/docking-mcp/internal/runner"
	"github.com/alex-galey/docking-mcp/internal/toolchain"
)

var _ = Describe("Resolver", func() {
	var (
		ctx      context.Context
		root     string
		store    *toolchain.MemoryStore
		lookPath *fakeLookPath
		run      *fakeRunner
		resolver *toolchain.Resolver
	)

	newResolver := func() *toolchain.Resolver {
		return toolchain.NewResolver(testCatalog(), store, run, discardLogger(), nil, toolchain.Options{
			SearchRoots: []string{root},
			MaxDepth:    toolchain.DefaultMaxDepth,
			LookPath:    lookPath.LookPath,
		})
	}

	BeforeEach(func() {
		ctx = context.Background()
		root = GinkgoT().TempDir()
		store = toolchain.NewMemoryStore(nil)
		lookPath = &fakeLookPath{paths: map[string]string{}}
		run = &fakeRunner{result: &runner.Result{}}
		resolver = newResolver()
	})

	Describe("Resolve", func() {
		It("returns a cached path that still exists without searching", func() {
			cached := touch(GinkgoT().TempDir(), "bin", "obabel-test")
			store = toolchain.NewMemoryStore(map[string]string{"obabel": cached})
			resolver = newResolver()

			path, err := resolver.Resolve(ctx, "obabel")
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal(cached))
			Expect(lookPath.Calls()).To(Equal(0))
			Expect(store.Saves()).To(Equal(0))
		})

		It("falls through a stale cached path to the PATH search and persists the result", func() {
			onPath := touch(GinkgoT().TempDir(), "obabel-test")
			lookPath.paths["obabel-test"] = onPath
			store = toolchain.NewMemoryStore(map[string]string{"obabel": filepath.Join(root, "gone", "obabel-test")})
			resolver = newResolver()

			path, err := resolver.Resolve(ctx, "obabel")
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal(onPath))

			saved, _ := store.Load()
			Expect(saved).To(HaveKeyWithValue("obabel", onPath))
		})

		It("walks the search roots breadth-first when PATH has nothing", func() {
			installed := touch(root, "OpenBabel-3.1.1", "bin", "obabel-test")

			path, err := resolver.Resolve(ctx, "obabel")
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal(installed))
		})

		It("prefers the shallowest match in a root", func() {
			touch(root, "a", "b", "c", "vina-test")
			shallow := touch(root, "z", "vina-test")

			path, err := resolver.Resolve(ctx, "vina")
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal(shallow))
		})

		It("finds tools at the maximum depth but not beyond it", func() {
			atLimit := touch(root, "1", "2", "3", "4", "5", "vina-test")
			touch(root, "1", "2", "3", "4", "5", "6", "obabel-test")

			path, err := resolver.Resolve(ctx, "vina")
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal(atLimit))

			_, err = resolver.Resolve(ctx, "obabel")
			Expect(toolchain.IsNotFoundError(err)).To(BeTrue())
		})

		It("walks to the default depth when no depth is configured", func() {
			deep := touch(root, "1", "2", "3", "4", "5", "vina-test")
			resolver = toolchain.NewResolver(testCatalog(), store, run, discardLogger(), nil, toolchain.Options{
				SearchRoots: []string{root},
				LookPath:    lookPath.LookPath,
			})

			path, err := resolver.Resolve(ctx, "vina")
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal(deep))
		})

		It("scans only the roots for a negative depth", func() {
			touch(root, "bin", "vina-test")
			resolver = toolchain.NewResolver(testCatalog(), store, run, discardLogger(), nil, toolchain.Options{
				SearchRoots: []string{root},
				MaxDepth:    -1,
				LookPath:    lookPath.LookPath,
			})

			_, err := resolver.Resolve(ctx, "vina")
			Expect(toolchain.IsNotFoundError(err)).To(BeTrue())
		})

		It("does not trust a cached path that is a directory", func() {
			cachedDir := filepath.Join(GinkgoT().TempDir(), "vina-test")
			Expect(os.MkdirAll(cachedDir, 0o755)).To(Succeed())
			installed := touch(root, "vina-test")
			store = toolchain.NewMemoryStore(map[string]string{"vina": cachedDir})
			resolver = newResolver()

			path, err := resolver.Resolve(ctx, "vina")
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal(installed))

			saved, _ := store.Load()
			Expect(saved).To(HaveKeyWithValue("vina", installed))
		})

		It("skips search roots that do not exist", func() {
			installed := touch(root, "vina-test")
			resolver = toolchain.NewResolver(testCatalog(), store, run, discardLogger(), nil, toolchain.Options{
				SearchRoots: []string{filepath.Join(root, "missing"), root},
				LookPath:    lookPath.LookPath,
			})

			path, err := resolver.Resolve(ctx, "vina")
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal(installed))
		})

		It("returns NotFound and leaves the store untouched when every strategy fails", func() {
			_, err := resolver.Resolve(ctx, "vina")
			Expect(err).To(HaveOccurred())
			Expect(toolchain.IsNotFoundError(err)).To(BeTrue())
			Expect(errors.Is(err, toolchain.ErrToolNotFound)).To(BeTrue())
			Expect(store.Saves()).To(Equal(0))
		})

		It("is idempotent once a path has been discovered", func() {
			installed := touch(root, "vina-test")

			first, err := resolver.Resolve(ctx, "vina")
			Expect(err).NotTo(HaveOccurred())
			searches := lookPath.Calls()

			second, err := resolver.Resolve(ctx, "vina")
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal(first))
			Expect(second).To(Equal(installed))
			Expect(lookPath.Calls()).To(Equal(searches))
			Expect(store.Saves()).To(Equal(1))
		})

		It("rejects unknown keys", func() {
			_, err := resolver.Resolve(ctx, "gnina")
			Expect(toolchain.IsUnknownToolError(err)).To(BeTrue())
		})
	})

	Describe("ResolveAll", func() {
		It("returns one entry per catalog tool even when some are missing", func() {
			obabel := touch(root, "obabel-test")

			results := resolver.ResolveAll(ctx)
			Expect(results).To(HaveLen(2))

			Expect(results["obabel"].Found).To(BeTrue())
			Expect(results["obabel"].Path).To(Equal(obabel))
			Expect(results["obabel"].Strategy).To(Equal(toolchain.StrategyWalk))

			Expect(results["vina"].Found).To(BeFalse())
			Expect(toolchain.IsNotFoundError(results["vina"].Err)).To(BeTrue())
			Expect(results["vina"].Spec.DisplayName).To(Equal("AutoDock Vina"))
		})
	})

	Describe("SetPath", func() {
		It("persists an existing path", func() {
			custom := touch(GinkgoT().TempDir(), "vina-custom")

			Expect(resolver.SetPath("vina", custom)).To(Succeed())
			path, err := resolver.Path("vina")
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal(custom))
		})

		It("fails without mutating anything when the path does not exist", func() {
			existing := touch(GinkgoT().TempDir(), "vina-test")
			store = toolchain.NewMemoryStore(map[string]string{"vina": existing})
			resolver = newResolver()

			err := resolver.SetPath("vina", filepath.Join(root, "nope"))
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())
			Expect(store.Saves()).To(Equal(0))

			path, _ := resolver.Path("vina")
			Expect(path).To(Equal(existing))
		})

		It("refuses a directory", func() {
			err := resolver.SetPath("vina", root)
			Expect(errors.Is(err, toolchain.ErrNotRegularFile)).To(BeTrue())
			Expect(store.Saves()).To(Equal(0))
		})

		It("rejects unknown keys", func() {
			Expect(toolchain.IsUnknownToolError(resolver.SetPath("gnina", root))).To(BeTrue())
		})
	})

	Describe("Path", func() {
		It("never searches", func() {
			touch(root, "obabel-test")

			path, err := resolver.Path("obabel")
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(BeEmpty())
			Expect(lookPath.Calls()).To(Equal(0))
		})
	})

	Describe("Verify", func() {
		var tool string

		BeforeEach(func() {
			tool = touch(GinkgoT().TempDir(), "vina-test")
			Expect(resolver.SetPath("vina", tool)).To(Succeed())
		})

		It("runs the version probe and truncates its output", func() {
			run.result = &runner.Result{Stdout: []byte(strings.Repeat("v", 150))}

			v, err := resolver.Verify(ctx, "vina")
			Expect(err).NotTo(HaveOccurred())
			Expect(v.OK).To(BeTrue())
			Expect(v.Detail).To(HaveLen(100))

			Expect(run.commands).To(HaveLen(1))
			Expect(run.commands[0].Name).To(Equal(tool))
			Expect(run.commands[0].Args).To(Equal([]string{"--version"}))
			Expect(run.commands[0].Timeout).To(Equal(toolchain.DefaultProbeTimeout))
		})

		It("treats a non-zero exit as present", func() {
			run.result = &runner.Result{ExitCode: 1, Stdout: []byte("AutoDock Vina 1.2.5")}
			run.err = &runner.ExternalToolFailure{Command: tool, ExitCode: 1}

			v, err := resolver.Verify(ctx, "vina")
			Expect(err).NotTo(HaveOccurred())
			Expect(v.OK).To(BeTrue())
			Expect(v.Detail).To(Equal("AutoDock Vina 1.2.5"))
		})

		It("reports a probe timeout as a verification failure", func() {
			run.result = &runner.Result{ExitCode: -1}
			run.err = &runner.ExternalToolFailure{Command: tool, ExitCode: -1, Err: context.DeadlineExceeded}

			v, err := resolver.Verify(ctx, "vina")
			Expect(err).NotTo(HaveOccurred())
			Expect(v.OK).To(BeFalse())
			Expect(v.Detail).To(Equal("cannot execute"))
		})

		It("reports a program that cannot start", func() {
			run.result = nil
			run.err = &runner.StartError{Command: tool, Err: os.ErrPermission}

			v, err := resolver.Verify(ctx, "vina")
			Expect(err).NotTo(HaveOccurred())
			Expect(v.OK).To(BeFalse())
		})

		It("does not probe tools without a cached path", func() {
			v, err := resolver.Verify(ctx, "obabel")
			Expect(err).NotTo(HaveOccurred())
			Expect(v.OK).To(BeFalse())
			Expect(v.Detail).To(Equal("file does not exist"))
			Expect(run.commands).To(BeEmpty())
		})
	})
})
