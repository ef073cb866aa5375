package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/depthmesh/pipeline"
	"go.viam.com/depthmesh/presentation"
	"go.viam.com/depthmesh/rimage"
)

// Prompter asks the user what to do next in interactive mode.
type Prompter interface {
	// ImagePath asks for the image to process.
	ImagePath() (string, error)
	// SavePath asks where to save the mesh. An empty answer skips saving.
	SavePath(suggested string) (string, error)
	// Another asks whether to process another image.
	Another() (bool, error)
}

type huhPrompter struct{}

func validateImagePath(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("enter a path")
	}
	if !rimage.IsSupportedImagePath(path) {
		return errors.Errorf("choose a %s file", strings.Join(rimage.SupportedImageExtensions, ", "))
	}
	if _, err := os.Stat(path); err != nil {
		return errors.New("file does not exist")
	}
	return nil
}

func validateSavePath(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if ext := filepath.Ext(path); ext != "" && !strings.EqualFold(ext, presentation.OBJExtension) {
		return errors.New("meshes are saved as .obj")
	}
	return nil
}

func (huhPrompter) ImagePath() (string, error) {
	var path string
	err := huh.NewInput().
		Title("Choose an image").
		Description("JPEG or PNG file").
		Placeholder("photo.jpg").
		Value(&path).
		Validate(validateImagePath).
		Run()
	return strings.TrimSpace(path), err
}

func (huhPrompter) SavePath(suggested string) (string, error) {
	path := suggested
	err := huh.NewInput().
		Title("Save mesh as OBJ").
		Description("leave empty to skip").
		Value(&path).
		Validate(validateSavePath).
		Run()
	return strings.TrimSpace(path), err
}

func (huhPrompter) Another() (bool, error) {
	another := true
	err := huh.NewConfirm().
		Title("Process another image?").
		Affirmative("Yes").
		Negative("No").
		Value(&another).
		Run()
	return another, err
}

// interactiveAction loops over prompted images. Pipeline and export failures
// are reported and the loop carries on; only prompt failures end it.
func interactiveAction(c *cli.Context, prompter Prompter) (err error) {
	r, err := newRunner(c)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, r.close())
	}()

	if err := r.estimator.Load(c.Context); err != nil {
		warningf(c.App.ErrWriter, "model not loaded yet, will retry on the first image: %v", err)
	}

	for {
		path, err := prompter.ImagePath()
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		if err != nil {
			return err
		}

		r.processInteractive(path, prompter)

		another, err := prompter.Another()
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		if err != nil {
			return err
		}
		if !another {
			return nil
		}
	}
}

func (r *runner) processInteractive(path string, prompter Prompter) {
	c := r.c
	pm := r.progress(meshStages...)
	res, err := r.gen.RunWithObserver(c.Context, path, pm)
	pm.Stop()
	if err != nil {
		r.logger.Warnw("run failed", "image", path, "error", err)
		warningf(c.App.ErrWriter, "%v", err)
		return
	}
	printResult(c, res)

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	preview := filepath.Join(os.TempDir(), base+"-preview.png")
	if _, err := r.gen.Export(c.Context, res, pipeline.Outputs{
		Preview:        preview,
		PreviewOptions: presentation.DefaultPreviewOptions(),
	}); err != nil {
		warningf(c.App.ErrWriter, "%v", err)
	} else {
		infof(c.App.Writer, "Preview: %s", preview)
	}

	save, err := prompter.SavePath(filepath.Join(filepath.Dir(path), base+presentation.OBJExtension))
	if err != nil {
		if !errors.Is(err, huh.ErrUserAborted) {
			warningf(c.App.ErrWriter, "%v", err)
		}
		return
	}
	if save == "" {
		return
	}
	written, err := r.gen.Export(c.Context, res, pipeline.Outputs{OBJ: save})
	if err != nil {
		warningf(c.App.ErrWriter, "%v", err)
		return
	}
	for _, w := range written {
		printf(c.App.Writer, "Wrote %s", w)
	}
}
