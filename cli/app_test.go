package cli

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/huh"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/depthmesh/pipeline"
)

func writeTestImage(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 128, 96))
	for y := 0; y < 96; y++ {
		for x := 0; x < 128; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(2 * x), G: uint8(2 * y), B: 90, A: 255})
		}
	}
	fn := filepath.Join(dir, name)
	test.That(t, imaging.Save(img, fn), test.ShouldBeNil)
	return fn
}

func runApp(t *testing.T, prompter Prompter, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp(&out, &errOut, prompter)
	err := app.RunContext(context.Background(), append([]string{"depthmesh", "--fake-model", "--no-progress"}, args...))
	return out.String(), errOut.String(), err
}

func TestGenerateCommand(t *testing.T) {
	dir := t.TempDir()
	fn := writeTestImage(t, dir, "scene.png")

	out, _, err := runApp(t, nil, "generate", "--image", fn,
		"--obj", filepath.Join(dir, "scene"),
		"--figure", filepath.Join(dir, "figure.png"),
		"--preview", filepath.Join(dir, "preview.png"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "Depth map: 96x64")
	test.That(t, out, test.ShouldContainSubstring, "faces")
	test.That(t, out, test.ShouldContainSubstring, "Wrote "+filepath.Join(dir, "scene.obj"))

	for _, name := range []string{"scene.obj", "figure.png", "preview.png"} {
		_, err := os.Stat(filepath.Join(dir, name))
		test.That(t, err, test.ShouldBeNil)
	}
}

func TestGenerateCommandErrors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := runApp(t, nil, "generate")
	test.That(t, err, test.ShouldNotBeNil)

	_, _, err = runApp(t, nil, "generate", "--image", filepath.Join(dir, "missing.png"))
	test.That(t, errors.Is(err, pipeline.ErrInvalidInput), test.ShouldBeTrue)

	fn := writeTestImage(t, dir, "scene.png")
	_, _, err = runApp(t, nil, "generate", "--image", fn, "--obj", filepath.Join(dir, "nope", "mesh.obj"))
	test.That(t, errors.Is(err, pipeline.ErrIO), test.ShouldBeTrue)
}

func TestMeshCommand(t *testing.T) {
	dir := t.TempDir()
	fn := writeTestImage(t, dir, "scene.png")
	cloud := filepath.Join(dir, "cloud.pcd")

	out, _, err := runApp(t, nil, "generate", "--image", fn, "--pcd", cloud, "--pcd-binary")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "volume")
	head := make([]byte, 256)
	f, err := os.Open(cloud)
	test.That(t, err, test.ShouldBeNil)
	n, _ := f.Read(head)
	test.That(t, f.Close(), test.ShouldBeNil)
	test.That(t, string(head[:n]), test.ShouldContainSubstring, "DATA binary\n")

	out, _, err = runApp(t, nil, "mesh", "--pcd", cloud, "--obj", filepath.Join(dir, "from-cloud"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldNotContainSubstring, "Depth map:")
	test.That(t, out, test.ShouldContainSubstring, "Mesh: ")
	test.That(t, out, test.ShouldContainSubstring, "Wrote "+filepath.Join(dir, "from-cloud.obj"))

	_, _, err = runApp(t, nil, "mesh", "--pcd", fn)
	test.That(t, errors.Is(err, pipeline.ErrInvalidInput), test.ShouldBeTrue)
}

func TestDepthCommand(t *testing.T) {
	dir := t.TempDir()
	fn := writeTestImage(t, dir, "scene.jpg")
	fig := filepath.Join(dir, "depth.png")

	out, _, err := runApp(t, nil, "depth", "--image", fn, "--out", fig)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldNotContainSubstring, "Mesh:")
	saved, err := imaging.Open(fig)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, saved.Bounds().Dx(), test.ShouldBeGreaterThan, 2*96)
}

func TestConfigFlags(t *testing.T) {
	dir := t.TempDir()
	conf := filepath.Join(dir, "config.json")
	test.That(t, os.WriteFile(conf, []byte(`{"model": {"type": "remote", "url": "http://127.0.0.1:1"}}`), 0o600), test.ShouldBeNil)
	fn := writeTestImage(t, dir, "scene.png")

	// the remote model in the file is unreachable, the flag swaps in the fake
	_, _, err := runApp(t, nil, "--config", conf, "depth", "--image", fn, "--out", filepath.Join(dir, "d.png"))
	test.That(t, err, test.ShouldBeNil)

	var out, errOut bytes.Buffer
	app := newApp(&out, &errOut, nil)
	err = app.RunContext(context.Background(), []string{
		"depthmesh", "--no-progress", "--config", conf, "depth", "--image", fn, "--out", filepath.Join(dir, "d.png"),
	})
	test.That(t, errors.Is(err, pipeline.ErrModelInference), test.ShouldBeTrue)

	test.That(t, os.WriteFile(conf, []byte(`{"preprocess": {"stride": 0}}`), 0o600), test.ShouldBeNil)
	_, _, err = runApp(t, nil, "--config", conf, "depth", "--image", fn, "--out", filepath.Join(dir, "d.png"))
	test.That(t, err, test.ShouldNotBeNil)
}

type scriptedPrompter struct {
	images  []string
	saves   []string
	another []bool
	asked   []string
}

func (p *scriptedPrompter) ImagePath() (string, error) {
	if len(p.images) == 0 {
		return "", huh.ErrUserAborted
	}
	next := p.images[0]
	p.images = p.images[1:]
	return next, nil
}

func (p *scriptedPrompter) SavePath(suggested string) (string, error) {
	p.asked = append(p.asked, suggested)
	next := p.saves[0]
	p.saves = p.saves[1:]
	return next, nil
}

func (p *scriptedPrompter) Another() (bool, error) {
	next := p.another[0]
	p.another = p.another[1:]
	return next, nil
}

func TestInteractive(t *testing.T) {
	dir := t.TempDir()
	fn := writeTestImage(t, dir, "scene.png")
	prompter := &scriptedPrompter{
		// a failing image does not end the session
		images:  []string{filepath.Join(dir, "missing.png"), fn, fn},
		saves:   []string{filepath.Join(dir, "saved"), ""},
		another: []bool{true, true, false},
	}

	out, errOut, err := runApp(t, prompter, "interactive")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, errOut, test.ShouldContainSubstring, "invalid input")
	test.That(t, out, test.ShouldContainSubstring, "Wrote "+filepath.Join(dir, "saved.obj"))
	test.That(t, prompter.asked, test.ShouldResemble, []string{
		filepath.Join(dir, "scene.obj"), filepath.Join(dir, "scene.obj"),
	})
	_, err = os.Stat(filepath.Join(dir, "saved.obj"))
	test.That(t, err, test.ShouldBeNil)
}

func TestInteractiveAbort(t *testing.T) {
	_, _, err := runApp(t, &scriptedPrompter{}, "interactive")
	test.That(t, err, test.ShouldBeNil)
}

func TestValidatePaths(t *testing.T) {
	dir := t.TempDir()
	fn := writeTestImage(t, dir, "scene.png")
	test.That(t, validateImagePath(fn), test.ShouldBeNil)
	test.That(t, validateImagePath(""), test.ShouldNotBeNil)
	test.That(t, validateImagePath(filepath.Join(dir, "scene.gif")), test.ShouldNotBeNil)
	test.That(t, validateImagePath(filepath.Join(dir, "other.png")), test.ShouldNotBeNil)

	test.That(t, validateSavePath(""), test.ShouldBeNil)
	test.That(t, validateSavePath("mesh"), test.ShouldBeNil)
	test.That(t, validateSavePath("mesh.OBJ"), test.ShouldBeNil)
	test.That(t, validateSavePath("mesh.stl"), test.ShouldNotBeNil)
}
