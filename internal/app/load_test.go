// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package app_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/spf13/afero"

	"github.com/holomush/nautilus/internal/app"
	"github.com/holomush/nautilus/internal/config"
	"github.com/holomush/nautilus/internal/hook"
)

// coreHooks is a category exercising every loader rule at once.
var coreHooks = map[string]string{
	"custom.lua": `
return {
  called = false,
  foo = function()
    app.custom.called = true
  end,
}
`,
	"badHook.lua": `error("I am a bad hook!")`,
	"service/index.lua": `
app.custom.foo()
`,
	"service/private.lua": `error("I am private, do not use me!")`,
	"xylophone.lua": `-- @order -1
return {
  play = function() return "ding" end,
}
`,
}

func writeHooks(fsys afero.Fs, root, category string, files map[string]string) {
	for name, body := range files {
		path := filepath.Join(root, category, name)
		Expect(fsys.MkdirAll(filepath.Dir(path), 0o750)).To(Succeed())
		Expect(afero.WriteFile(fsys, path, []byte(body), 0o600)).To(Succeed())
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var _ = Describe("Loading hooks", func() {
	var (
		ctx   context.Context
		fsys  afero.Fs
		cfg   *config.Store
		a     *app.App
		build func()
	)

	BeforeEach(func() {
		ctx = context.Background()
		fsys = afero.NewMemMapFs()
		cfg = config.New()
		writeHooks(fsys, "/srv/hooks", "core", coreHooks)

		build = func() {
			var err error
			a, err = app.New(cfg,
				app.WithFS(fsys),
				app.WithDefaultRoot("/srv/hooks"),
				app.WithLogger(quietLogger()))
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(a.Close)
		}
	})

	Context("a category with a disabled hook", func() {
		var report hook.Report

		BeforeEach(func() {
			Expect(cfg.Disable("badHook")).To(Succeed())
			build()
			report = a.Load(ctx, "core")
		})

		It("lets later hooks call functions contributed earlier", func() {
			custom, ok := a.Context().Get("custom")
			Expect(ok).To(BeTrue())

			foo, ok := custom.Get("foo")
			Expect(ok).To(BeTrue())
			Expect(foo).To(BeAssignableToTypeOf(hook.Func(nil)))

			called, _ := custom.Get("called")
			Expect(called).To(Equal(true))
		})

		It("runs the lowest order first", func() {
			first, ok := a.Engine.Category("core").Shift()
			Expect(ok).To(BeTrue())
			Expect(first).To(Equal("xylophone"))
		})

		It("records loaded hooks", func() {
			Expect(a.Engine.IsLoaded("core:custom")).To(BeTrue())
			Expect(a.Engine.IsLoaded("core:service")).To(BeTrue())
			Expect(a.Engine.Loaded()).To(Equal([]string{"core:xylophone", "core:custom", "core:service"}))
		})

		It("leaves no trace of the disabled hook", func() {
			Expect(a.Engine.IsLoaded("core:badHook")).To(BeFalse())
			Expect(a.Context().Has("badHook")).To(BeFalse())
			Expect(a.Engine.Category("core").Names()).NotTo(ContainElement("badHook"))
			Expect(report.Count(hook.StatusSkipped)).To(Equal(1))
		})

		It("adds no context entry for a hook that returns nothing", func() {
			Expect(a.Context().Has("service")).To(BeFalse())
		})

		It("never runs files beside a directory hook's index", func() {
			Expect(report.Failed()).To(BeEmpty())
			Expect(a.Context().Has("private")).To(BeFalse())
			Expect(a.Engine.IsLoaded("core:private")).To(BeFalse())
		})

		It("replays completion to late subscribers", func() {
			var events []hook.Event
			a.Engine.After("core:custom", func(ev hook.Event) {
				events = append(events, ev)
			})

			Expect(events).To(HaveLen(1))
			Expect(events[0].Replayed).To(BeTrue())
			Expect(events[0].Status).To(Equal(hook.StatusLoaded))
		})
	})

	Context("a category with a failing hook", func() {
		It("isolates the failure", func() {
			build()
			report := a.Load(ctx, "core")

			failed := report.Failed()
			Expect(failed).To(HaveLen(1))
			Expect(failed[0].ID).To(Equal("core:badHook"))
			Expect(failed[0].Err).To(MatchError(ContainSubstring("I am a bad hook!")))

			called, _ := mustGet(a, "custom").Get("called")
			Expect(called).To(Equal(true))
		})
	})

	Context("hooks outside the configured root", func() {
		It("loads from an explicit base", func() {
			writeHooks(fsys, "/opt/extra", "plugins", map[string]string{
				"greeter.lua": `return { greet = function(n) return "hi " .. n end }`,
				"limits.yaml": "max: 3\n",
			})
			build()

			report := a.Load(ctx, "plugins", hook.WithBase("/opt/extra"))

			Expect(report.Count(hook.StatusLoaded)).To(Equal(2))
			greeting, err := hook.Call(mustGet(a, "greeter"), "greet", "bob")
			Expect(err).NotTo(HaveOccurred())
			Expect(greeting).To(Equal("hi bob"))
			limit, _ := mustGet(a, "limits").Get("max")
			Expect(limit).To(Equal(3))
		})

		It("loads from a real directory", func() {
			dir := GinkgoT().TempDir()
			Expect(os.MkdirAll(filepath.Join(dir, "core"), 0o750)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(dir, "core", "hello.lua"),
				[]byte(`return { word = "hello" }`), 0o600)).To(Succeed())

			onDisk, err := app.New(cfg, app.WithDefaultRoot(dir), app.WithLogger(quietLogger()))
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(onDisk.Close)

			onDisk.Load(ctx, "core")
			word, _ := mustGet(onDisk, "hello").Get("word")
			Expect(word).To(Equal("hello"))
		})
	})

	Context("missing targets", func() {
		It("does nothing", func() {
			build()
			reports := a.LoadAll(ctx, []string{"nowhere", "core:nothing", "ghost"})

			Expect(reports).To(HaveLen(3))
			for _, r := range reports {
				Expect(r.Records).To(BeEmpty())
			}
			Expect(a.Context().Len()).To(BeZero())
		})
	})

	Context("application-owned entries", func() {
		It("are visible to hooks and cannot be replaced", func() {
			writeHooks(fsys, "/srv/hooks", "extra", map[string]string{
				"reader.lua": `return { seen = app.store.name }`,
				"store.lua":  `return { name = "impostor" }`,
			})
			build()
			a.Context().Provide("store", hook.Members{"name": "memory"})

			report := a.Load(ctx, "extra")

			Expect(report.Failed()).To(HaveLen(1))
			Expect(report.Failed()[0].ID).To(Equal("extra:store"))
			seen, _ := mustGet(a, "reader").Get("seen")
			Expect(seen).To(Equal("memory"))
			name, _ := mustGet(a, "store").Get("name")
			Expect(name).To(Equal("memory"))
		})
	})
})

func mustGet(a *app.App, name string) hook.Contribution {
	c, ok := a.Context().Get(name)
	ExpectWithOffset(1, ok).To(BeTrue(), "context entry %q", name)
	return c
}
