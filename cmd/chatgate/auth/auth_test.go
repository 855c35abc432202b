package authcmder_test

import (
	"bytes"

	"github.com/charmbracelet/x/ansi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/chatgate/cmd/chatgate/auth"
	"github.com/papercomputeco/chatgate/pkg/credentials"
)

var _ = Describe("Auth Command", func() {
	var (
		tmpDir string
		mgr    *credentials.Manager
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()

		var err error
		mgr, err = credentials.NewManager(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	execute := func(in string, args ...string) (string, error) {
		cmd := authcmder.NewAuthCmd()
		cmd.PersistentFlags().String("config-dir", "", "Override path to .chatgate/ config directory")
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetIn(bytes.NewBufferString(in))
		cmd.SetArgs(append(args, "--config-dir", tmpDir))
		err := cmd.Execute()
		return ansi.Strip(out.String()), err
	}

	Describe("NewAuthCmd", func() {
		It("creates a command with expected properties", func() {
			cmd := authcmder.NewAuthCmd()
			Expect(cmd.Use).To(Equal("auth [provider]"))
			Expect(cmd.Short).NotTo(BeEmpty())
			for _, name := range []string{"list", "remove", "token", "sign-out"} {
				Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
			}
		})
	})

	Describe("storing keys", func() {
		It("reads a piped key", func() {
			out, err := execute("  sk-ant-test \n", "anthropic")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("Stored anthropic credentials"))

			key, err := mgr.GetKey("anthropic")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("sk-ant-test"))
		})

		It("rejects an empty key", func() {
			_, err := execute("\n", "openai")
			Expect(err).To(MatchError("API key cannot be empty"))
		})

		It("returns error for unsupported provider", func() {
			_, err := execute("sk-test\n", "ollama")
			Expect(err).To(MatchError(ContainSubstring("unsupported provider")))
		})

		It("returns error when no provider given", func() {
			cmd := authcmder.NewAuthCmd()
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs([]string{})

			err := cmd.Execute()
			Expect(err).To(MatchError(ContainSubstring("provider argument required")))
		})
	})

	Describe("session token", func() {
		It("stores and signs out", func() {
			_, err := execute("session-123\n", "--token")
			Expect(err).NotTo(HaveOccurred())

			creds, err := mgr.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(creds.Session.Token).To(Equal("session-123"))

			out, err := execute("", "--sign-out")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("Signed out"))

			creds, err = mgr.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(creds.Session.Token).To(BeEmpty())
		})
	})

	Describe("--list flag", func() {
		It("shows no credentials when none stored", func() {
			out, err := execute("", "--list")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("No stored credentials."))
		})

		It("lists stored credentials", func() {
			Expect(mgr.SetKey("openai", "sk-test")).To(Succeed())
			Expect(mgr.SetToken("tok")).To(Succeed())

			out, err := execute("", "--list")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("openai  → OPENAI_API_KEY"))
			Expect(out).To(ContainSubstring("session token"))
		})
	})

	Describe("--remove flag", func() {
		It("removes stored credentials", func() {
			Expect(mgr.SetKey("openai", "sk-test")).To(Succeed())

			_, err := execute("", "--remove", "openai")
			Expect(err).NotTo(HaveOccurred())

			key, err := mgr.GetKey("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(BeEmpty())
		})
	})

	Describe("shell completion", func() {
		It("provides provider name completions", func() {
			cmd := authcmder.NewAuthCmd()
			completions, directive := cmd.ValidArgsFunction(cmd, []string{}, "")
			Expect(completions).To(ConsistOf("openai", "anthropic", "azure"))
			Expect(directive).To(Equal(cobra.ShellCompDirectiveNoFileComp))
		})

		It("provides no completions after first arg", func() {
			cmd := authcmder.NewAuthCmd()
			completions, directive := cmd.ValidArgsFunction(cmd, []string{"openai"}, "")
			Expect(completions).To(BeNil())
			Expect(directive).To(Equal(cobra.ShellCompDirectiveNoFileComp))
		})
	})
})
