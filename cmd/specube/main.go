package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"specube/internal/logging"
	"specube/pkg/analysis"
	"specube/pkg/config"
	"specube/pkg/noise"
)

func main() {
	// Parse command line arguments
	inputFile := flag.String("input", "", "Input FITS cube to analyze")
	configPath := flag.String("config", "config.yaml", "Configuration file (optional)")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to the -config path and exit")
	outputDir := flag.String("output", "analysis_output", "Directory for derived products")
	method := flag.Int("method", 1, "Noise method: 0 stddev, 1 sigma-clip, 2 zero-clip, 3 IQR")
	nsigma := flag.Float64("nsigma", 3.0, "Significance threshold in noise units")
	refChannels := flag.Int("ref-channels", 5, "Leading signal-free channels for the noise reference")
	smoothSigma := flag.Float64("smooth", 1.5, "Gaussian smoothing width in pixels")
	centerCol := flag.Float64("center-col", -1, "Curve center column (negative: map center)")
	centerRow := flag.Float64("center-row", -1, "Curve center row (negative: map center)")
	positionAngle := flag.Float64("pa", 0, "Position angle of the extraction line in degrees")
	curveLength := flag.Int("length", 20, "Sampling steps along each ray of the rotation curve")
	inclination := flag.Float64("inclination", 0, "Disk inclination in degrees (0 disables the correction)")
	flattenFrom := flag.Int("flatten-from", 5, "Curve point where the flat part starts")
	spectrumCol := flag.Int("spectrum-col", -1, "Spectrum pixel column (negative: center)")
	spectrumRow := flag.Int("spectrum-row", -1, "Spectrum pixel row (negative: center)")
	channelImages := flag.Bool("channel-images", false, "Render every channel as a PNG image")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write default config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	// Validate inputs
	if *inputFile == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Flags given explicitly on the command line override the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "method":
			cfg.Noise.Method = *method
		case "nsigma":
			cfg.Noise.NSigma = *nsigma
		case "ref-channels":
			cfg.Noise.ReferenceChannels = *refChannels
		case "smooth":
			cfg.Smoothing.Sigma = *smoothSigma
		case "center-col":
			cfg.Curve.CenterCol = *centerCol
		case "center-row":
			cfg.Curve.CenterRow = *centerRow
		case "pa":
			cfg.Curve.PositionAngle = *positionAngle
		case "length":
			cfg.Curve.Length = *curveLength
		case "inclination":
			cfg.Curve.Inclination = *inclination
		case "flatten-from":
			cfg.Curve.FlattenFrom = *flattenFrom
		case "spectrum-col":
			cfg.Spectrum.Col = *spectrumCol
		case "spectrum-row":
			cfg.Spectrum.Row = *spectrumRow
		case "output":
			cfg.Output.Dir = *outputDir
		case "verbose":
			cfg.Output.Verbose = *verbose
		}
	})

	lg := logging.New(cfg.Output.Verbose)

	fmt.Println("================================")
	fmt.Println("SPECTRAL-LINE CUBE ANALYSIS")
	fmt.Println("================================")

	params := &analysis.Params{
		InputFile:         *inputFile,
		OutputDir:         cfg.Output.Dir,
		NoiseMethod:       noise.Method(cfg.Noise.Method),
		NSigma:            cfg.Noise.NSigma,
		ReferenceChannels: cfg.Noise.ReferenceChannels,
		SmoothSigma:       cfg.Smoothing.Sigma,
		CenterCol:         cfg.Curve.CenterCol,
		CenterRow:         cfg.Curve.CenterRow,
		PositionAngle:     cfg.Curve.PositionAngle,
		CurveLength:       cfg.Curve.Length,
		Inclination:       cfg.Curve.Inclination,
		FlattenFrom:       cfg.Curve.FlattenFrom,
		SpectrumCol:       cfg.Spectrum.Col,
		SpectrumRow:       cfg.Spectrum.Row,
		SaveChannelImages: *channelImages,
	}

	analyzer := analysis.New(params, lg)

	fmt.Println("Starting cube analysis...")
	startTime := time.Now()
	if err := analyzer.Run(); err != nil {
		lg.Fatal().Err(err).Msg("analysis failed")
	}
	elapsed := time.Since(startTime)

	c := analyzer.Cube()
	res := analyzer.Results()
	fmt.Printf("\nAnalysis completed successfully in %.2f seconds!\n", elapsed.Seconds())
	fmt.Printf("Products saved to: %s\n\n", cfg.Output.Dir)

	fmt.Printf("Cube summary:\n")
	fmt.Printf("=============\n")
	fmt.Printf("Dimensions: %d x %d pixels, %d channels\n", c.Width, c.Height, c.Channels)
	fmt.Printf("Pixel scale: %.3f arcsec\n", c.PixelScale)
	if c.Unit != "" {
		fmt.Printf("Intensity unit: %s\n", c.Unit)
	}

	fmt.Printf("\nMeasurements:\n")
	fmt.Printf("=============\n")
	fmt.Printf("Noise method: %s\n", params.NoiseMethod)
	fmt.Printf("Reference noise: %.6g\n", res.Sigma)
	fmt.Printf("Significance threshold: %.6g\n", res.Threshold)
	fmt.Printf("Masked samples: %.1f%%\n", res.MaskedFraction*100)
	fmt.Printf("Invalid moment-1 pixels: %.1f%%\n", res.InvalidFraction*100)

	fmt.Printf("\nRotation curve flat part:\n")
	fmt.Printf("Receding side: %.2f +/- %.2f km/s\n", res.Flat.RecedingMean, res.Flat.RecedingStd)
	fmt.Printf("Approaching side: %.2f +/- %.2f km/s\n", res.Flat.ApproachingMean, res.Flat.ApproachingStd)
	fmt.Printf("Two-sided asymmetry: %.2f km/s\n", res.Flat.Asymmetry)
}
