package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/face"
	"github.com/kozaktomas/face-attendance/internal/gallery/filestore"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <name> <image-path>",
	Short: "Enroll a person from a face photo",
	Long: `Enroll a person into the gallery from a photo of their face.

The photo is sent to the extraction service; the detected face is
cropped and stored as the enrollment sample together with its
embedding. A photo with no detectable face is rejected.

Use --dir to enroll in bulk from a directory of photos, one person
per file, named <person-name>.jpg.

Examples:
  face-attendance enroll "Jane Novak" ./jane.jpg
  face-attendance enroll "Jane Novak" ./jane2.jpg   # adds a second sample
  face-attendance enroll "Jane Novak" ./jane3.jpg --replace
  face-attendance enroll --dir ./photos`,
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().Bool("replace", false, "Drop existing samples for the name before enrolling")
	enrollCmd.Flags().String("dir", "", "Enroll every image in a directory, named <person-name>.jpg")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	replace := mustGetBool(cmd, "replace")
	dir := mustGetString(cmd, "dir")

	if dir == "" && len(args) != 2 {
		return errors.New("expected <name> <image-path>, or --dir <directory>")
	}

	ctx := context.Background()
	s, err := buildStack(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if dir != "" {
		return enrollDir(ctx, s, dir, replace)
	}

	if err := enrollOne(ctx, s, args[0], args[1], replace); err != nil {
		return err
	}
	fmt.Printf("Enrolled %s (%d identities in gallery)\n", args[0], s.gallery.Len())
	return nil
}

// enrollOne enrolls a single person from a single photo.
func enrollOne(ctx context.Context, s *stack, name, path string, replace bool) error {
	frame, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read image %s: %w", path, err)
	}

	detection, err := extractor.DetectOne(ctx, s.extractor, frame)
	if errors.Is(err, extractor.ErrNoFaceDetected) {
		return fmt.Errorf("no face detected in %s", path)
	}
	if err != nil {
		return fmt.Errorf("face extraction failed for %s: %w", path, err)
	}

	sample, err := cropEnrollmentSample(frame, detection.Region)
	if err != nil {
		return fmt.Errorf("cropping face from %s: %w", path, err)
	}

	if err := s.gallery.Enroll(ctx, name, sample, detection.Embedding, replace); err != nil {
		return fmt.Errorf("enrolling %s: %w", name, err)
	}
	return nil
}

// enrollDir enrolls every image file in a directory, deriving the person
// name from the file name. Files where no face is found are reported and
// skipped; the rest of the batch continues.
func enrollDir(ctx context.Context, s *stack, dir string, replace bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("cannot read directory %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".jpg" || ext == ".jpeg" || ext == ".png" {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	if len(paths) == 0 {
		return fmt.Errorf("no images found in %s", dir)
	}

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("Enrolling"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	enrolled := 0
	skipped := 0
	for _, path := range paths {
		base := filepath.Base(path)
		name := strings.TrimSuffix(base, filepath.Ext(base))

		if err := enrollOne(ctx, s, name, path, replace); err != nil {
			fmt.Printf("\nSkipping %s: %v\n", base, err)
			skipped++
		} else {
			enrolled++
		}
		_ = bar.Add(1)
	}
	fmt.Printf("\nEnrolled %d, skipped %d\n", enrolled, skipped)
	return nil
}

// cropEnrollmentSample cuts the detected face region out of the frame.
func cropEnrollmentSample(frame []byte, region face.Region) ([]byte, error) {
	return filestore.CropSample(frame, region)
}
