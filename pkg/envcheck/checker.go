package envcheck

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/Masterminds/semver"

	"github.com/devicelab-dev/appium-harness/pkg/cmdrunner"
	"github.com/devicelab-dev/appium-harness/pkg/logger"
	"github.com/devicelab-dev/appium-harness/pkg/server"
)

// parallelWorkers bounds the worker pool for the parallel variant.
const parallelWorkers = 5

// VersionPolicy captures the accepted runtime versions. The gating
// thresholds differ across installations, so they are policy, not
// hard-coded fact; the defaults are the most defensive set.
type VersionPolicy struct {
	NodeMajors   []uint64 // accepted exact Node.js majors
	NodeMinMajor uint64   // any major at or above this is also accepted
	JavaPrefixes []string // accepted "java version" prefixes
}

// DefaultVersionPolicy accepts Node.js 14, 16 and anything from 18 up,
// and Java 8 in either version-string form.
func DefaultVersionPolicy() VersionPolicy {
	return VersionPolicy{
		NodeMajors:   []uint64{14, 16},
		NodeMinMajor: 18,
		JavaPrefixes: []string{"1.8", "8."},
	}
}

// commandRunner is the slice of cmdrunner.Runner the checker needs.
type commandRunner interface {
	Run(name string, args ...string) (cmdrunner.Result, error)
}

// serverProbe is the slice of server.Controller the driver-server stage
// needs.
type serverProbe interface {
	DetectDesktop() bool
	Healthy() bool
	PortInUse() bool
	Start() error
	Stop()
	Spawned() bool
}

// Checker orchestrates the environment verification stages. Stages run in
// a fixed order and every stage runs regardless of earlier failures, so
// the final report lists everything that is wrong at once.
type Checker struct {
	Policy VersionPolicy

	runner commandRunner
	srv    serverProbe

	// Host introspection hooks, swappable in tests.
	getenv   func(string) string
	lookPath func(string) (string, error)
	isDir    func(string) bool
	listDir  func(string) ([]string, error)
	goos     string
}

// NewChecker creates a Checker probing the real host.
func NewChecker(runner *cmdrunner.Runner, srv *server.Controller) *Checker {
	return &Checker{
		Policy:   DefaultVersionPolicy(),
		runner:   runner,
		srv:      srv,
		getenv:   os.Getenv,
		lookPath: exec.LookPath,
		isDir: func(path string) bool {
			info, err := os.Stat(path)
			return err == nil && info.IsDir()
		},
		listDir: func(path string) ([]string, error) {
			entries, err := os.ReadDir(path)
			if err != nil {
				return nil, err
			}
			names := make([]string, 0, len(entries))
			for _, e := range entries {
				names = append(names, e.Name())
			}
			return names, nil
		},
		goos: runtime.GOOS,
	}
}

// stage is one independently failing verification step.
type stage struct {
	name string
	run  func(*Result)
}

func (c *Checker) stages() []stage {
	return []stage{
		{"node", c.checkNode},
		{"java", c.checkJava},
		{"appium", c.checkAppium},
		{"android", c.checkAndroid},
		{"ios", c.checkIOS},
	}
}

// Check runs all stages sequentially and returns the aggregate result.
func (c *Checker) Check() *Result {
	result := NewResult()
	for _, s := range c.stages() {
		c.runStage(s, result)
	}
	return result
}

// CheckCached returns the cached result when fresh, otherwise runs the
// full sequential check and stores it. A stale failed result from cache is
// returned verbatim; the caller must treat it exactly like a fresh one.
func (c *Checker) CheckCached(cache *Cache) *Result {
	return c.cached(cache, c.Check)
}

// CheckParallelCached is CheckCached with the parallel runner behind the
// cache.
func (c *Checker) CheckParallelCached(cache *Cache) *Result {
	return c.cached(cache, c.CheckParallel)
}

func (c *Checker) cached(cache *Cache, run func() *Result) *Result {
	if cached, ok := cache.Get(); ok {
		logger.Info("using cached environment check result")
		return cached
	}
	result := run()
	if err := cache.Set(result); err != nil {
		logger.Warn("failed to store environment cache: %v", err)
	}
	return result
}

// CheckParallel fans the stages across a bounded worker pool. Stages write
// disjoint detail keys and the shared result serializes its mutations, so
// the aggregate equals the sequential run.
func (c *Checker) CheckParallel() *Result {
	result := NewResult()

	queue := make(chan stage, len(c.stages()))
	for _, s := range c.stages() {
		queue <- s
	}
	close(queue)

	var wg sync.WaitGroup
	for i := 0; i < parallelWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range queue {
				c.runStage(s, result)
			}
		}()
	}
	wg.Wait()

	return result
}

// runStage runs one stage, converting a panic inside a probe into a failed
// check for that stage only.
func (c *Checker) runStage(s stage, result *Result) {
	defer func() {
		if r := recover(); r != nil {
			result.FailStage(s.name, fmt.Errorf("probe panic: %v", r))
			result.Fail(
				fmt.Sprintf("%s check (crashed)", s.name),
				fmt.Sprintf("re-run the doctor with --no-cache; the %s probe crashed mid-run", s.name),
			)
		}
	}()
	s.run(result)
}

// checkNode verifies the Node.js runtime against the version policy.
func (c *Checker) checkNode(result *Result) {
	res, err := c.runner.Run("node", "-v")
	if err != nil {
		result.FailStage("node", err)
		result.Fail("Node.js", "install Node.js 18 LTS (https://nodejs.org)")
		return
	}

	raw := strings.TrimSpace(res.Output)
	version, err := semver.NewVersion(strings.TrimPrefix(raw, "v"))
	if err != nil {
		result.FailStage("node", fmt.Errorf("unparseable node version %q: %w", raw, err))
		result.Fail(
			fmt.Sprintf("Node.js (unrecognized version output %q)", raw),
			"check what `node -v` prints; reinstall Node.js if it is not a standard build",
		)
		return
	}

	result.SetDetail("node", Detail{Version: raw})

	major := uint64(version.Major())
	if !c.nodeMajorAccepted(major) {
		result.Fail(
			fmt.Sprintf("Node.js %s (found: %s)", c.nodePolicyString(), raw),
			fmt.Sprintf("switch Node.js to an accepted major: nvm install %d", c.Policy.NodeMinMajor),
		)
	}
}

func (c *Checker) nodeMajorAccepted(major uint64) bool {
	for _, m := range c.Policy.NodeMajors {
		if major == m {
			return true
		}
	}
	return c.Policy.NodeMinMajor > 0 && major >= c.Policy.NodeMinMajor
}

func (c *Checker) nodePolicyString() string {
	parts := make([]string, 0, len(c.Policy.NodeMajors)+1)
	for _, m := range c.Policy.NodeMajors {
		parts = append(parts, fmt.Sprintf("v%d", m))
	}
	if c.Policy.NodeMinMajor > 0 {
		parts = append(parts, fmt.Sprintf("v%d+", c.Policy.NodeMinMajor))
	}
	return strings.Join(parts, "/")
}

var javaVersionRe = regexp.MustCompile(`version "([^"]+)"`)

// checkJava verifies the Java runtime. The accepted versions are a prefix
// policy because Java 8 reports itself as either "1.8.0_x" or "8.x".
func (c *Checker) checkJava(result *Result) {
	res, err := c.runner.Run("java", "-version")
	if err != nil || res.ExitCode != 0 {
		if err == nil {
			err = fmt.Errorf("java -version exited %d", res.ExitCode)
		}
		result.FailStage("java", err)
		result.Fail("Java JDK 8", "install a Java 8 JDK (https://adoptium.net/temurin/releases/?version=8)")
		return
	}

	m := javaVersionRe.FindStringSubmatch(res.Output)
	if m == nil {
		result.Fail("Java JDK 8", "java -version produced no recognizable version string")
		return
	}

	version := m[1]
	for _, prefix := range c.Policy.JavaPrefixes {
		if strings.HasPrefix(version, prefix) {
			result.SetDetail("java", Detail{Version: version})
			return
		}
	}

	// Embed the detected version so the remediation can name it.
	result.SetDetail("java", Detail{Version: version})
	result.Fail(
		fmt.Sprintf("Java JDK 8 (found: %s)", version),
		"set JAVA_HOME to a Java 8 JDK installation",
	)
}

// checkAppium verifies the Appium installation, its platform drivers, and
// that a server can actually be brought up on the configured endpoint.
func (c *Checker) checkAppium(result *Result) {
	res, err := c.runner.Run("appium", "-v")
	if err != nil || res.ExitCode != 0 {
		if err == nil {
			err = fmt.Errorf("appium -v exited %d", res.ExitCode)
		}
		result.FailStage("appium", err)
		result.Fail("Appium", "npm install -g appium")
		return
	}
	detail := Detail{Version: strings.TrimSpace(res.Output)}
	if path, err := c.lookPath("appium"); err == nil {
		detail.Path = path
	}
	result.SetDetail("appium", detail)

	drivers, err := c.runner.Run("appium", "driver", "list", "--installed")
	if err != nil {
		result.FailStage("appium-drivers", err)
		result.Fail(
			"Appium driver listing",
			"run `appium driver list --installed` and fix whatever it reports",
		)
	} else {
		installed := strings.ToLower(drivers.Output)
		if !strings.Contains(installed, "uiautomator2") {
			result.Fail("appium-uiautomator2-driver", "appium driver install uiautomator2")
		}
		if !strings.Contains(installed, "xcuitest") {
			result.Fail("appium-xcuitest-driver", "appium driver install xcuitest")
		}
	}

	c.checkServer(result)
}

// checkServer probes the driver-server endpoint: an externally managed
// healthy server short-circuits; an occupied port fails fast; otherwise a
// local server is spawned for verification and torn down again.
func (c *Checker) checkServer(result *Result) {
	if c.srv == nil {
		return
	}

	if c.srv.DetectDesktop() && c.srv.Healthy() {
		result.SetDetail("appium-server", Detail{Extra: map[string]string{"mode": "external"}})
		return
	}

	if c.srv.PortInUse() {
		result.Fail(
			"Appium server port",
			"the configured port is occupied by something that is not an Appium server; free it or change appium_server.port",
		)
		return
	}

	if err := c.srv.Start(); err != nil {
		result.FailStage("appium-server", err)
		result.Fail(
			"Appium server",
			"start `appium` by hand and read its log for the startup error",
		)
		return
	}
	// The spawn was only a verification probe; do not leave a server
	// running behind the caller's back.
	if c.srv.Spawned() {
		c.srv.Stop()
	}
	result.SetDetail("appium-server", Detail{Extra: map[string]string{"mode": "spawn-verified"}})
}

// Required Android SDK tool families: each must exist as a directory under
// the SDK root and, where it ships a command, answer a version probe.
var androidToolFamilies = []struct {
	dir     string
	command []string
}{
	{"platform-tools", []string{"adb", "version"}},
	{"emulator", []string{"emulator", "-version"}},
	{"build-tools", nil}, // verified via version subdirectories below
}

// checkAndroid verifies the Android SDK toolchain. The SDK root comes from
// the environment; once configuration is authoritative there is no
// path-guessing fallback.
func (c *Checker) checkAndroid(result *Result) {
	root := c.androidHome()
	if root == "" {
		result.Fail(
			"Android SDK (ANDROID_HOME not set)",
			"export ANDROID_HOME pointing at the SDK installation",
		)
		return
	}

	detail := Detail{Path: root, Extra: map[string]string{}}

	for _, family := range androidToolFamilies {
		if !c.isDir(filepath.Join(root, family.dir)) {
			result.Fail(
				fmt.Sprintf("Android %s", family.dir),
				fmt.Sprintf("install %s via Android Studio's SDK Manager", family.dir),
			)
			continue
		}
		if family.command == nil {
			continue
		}
		res, err := c.runner.Run(family.command[0], family.command[1:]...)
		if err != nil || res.ExitCode != 0 {
			result.Fail(
				fmt.Sprintf("Android %s (%s not invocable)", family.dir, family.command[0]),
				fmt.Sprintf("add %s/%s to PATH", root, family.dir),
			)
		}
	}

	// At least one build-tools version must be installed; the
	// lexicographically last one is "latest".
	versions, err := c.listDir(filepath.Join(root, "build-tools"))
	if err != nil || len(versions) == 0 {
		result.Fail("Android build-tools", "install a build-tools version via the SDK Manager")
	} else {
		sort.Strings(versions)
		detail.Extra["build-tools"] = versions[len(versions)-1]
	}

	result.SetDetail("android", detail)
}

// androidHome resolves the SDK root from the conventional env variables.
func (c *Checker) androidHome() string {
	for _, key := range []string{"ANDROID_HOME", "ANDROID_SDK_ROOT", "ANDROID_SDK_HOME"} {
		if v := c.getenv(key); v != "" {
			return v
		}
	}
	return ""
}

// checkIOS verifies the Xcode toolchain and WebDriverAgent prerequisites.
// Meaningless off macOS, where it records a skip instead of failing.
func (c *Checker) checkIOS(result *Result) {
	if c.goos != "darwin" {
		result.SetDetail("ios", Detail{Extra: map[string]string{"skipped": "not darwin"}})
		return
	}

	res, err := c.runner.Run("xcodebuild", "-version")
	if err != nil || res.ExitCode != 0 {
		if err == nil {
			err = fmt.Errorf("xcodebuild -version exited %d", res.ExitCode)
		}
		result.FailStage("ios", err)
		result.Fail("Xcode", "install Xcode from the App Store")
		return
	}

	detail := Detail{Extra: map[string]string{}}
	if fields := strings.Fields(res.Output); len(fields) >= 2 {
		detail.Version = fields[1]
	}

	if sdk, err := c.runner.Run("xcrun", "--sdk", "iphoneos", "--show-sdk-version"); err == nil && sdk.ExitCode == 0 {
		detail.Extra["sdk"] = strings.TrimSpace(sdk.Output)
	} else {
		result.Fail("iOS SDK", "run xcode-select --install")
	}

	home, _ := os.UserHomeDir()
	wdaPath := filepath.Join(home, ".appium", "node_modules", "appium-xcuitest-driver",
		"node_modules", "appium-webdriveragent")
	if !c.isDir(wdaPath) {
		result.Fail("WebDriverAgent", "appium driver install xcuitest")
	} else {
		detail.Path = wdaPath
	}

	if ident, err := c.runner.Run("security", "find-identity", "-v", "-p", "codesigning"); err != nil ||
		(!strings.Contains(ident.Output, "iPhone Developer") && !strings.Contains(ident.Output, "Apple Development")) {
		result.Fail("iOS code-signing identity", "add an Apple ID under Xcode > Settings > Accounts and create a development certificate")
	}

	result.SetDetail("ios", detail)
}
