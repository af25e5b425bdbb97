package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/microcore/pkg/annotate"
	"github.com/cyclopcam/microcore/pkg/arena"
	"github.com/cyclopcam/microcore/pkg/capture"
	"github.com/cyclopcam/microcore/pkg/core"
	"github.com/cyclopcam/microcore/pkg/engine/replay"
	"github.com/cyclopcam/microcore/pkg/flash"
	"github.com/cyclopcam/microcore/pkg/frame"
	"github.com/cyclopcam/microcore/pkg/kibi"
	"github.com/cyclopcam/microcore/pkg/nn"
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	logger, err := logs.NewLog()
	check(err)
	defer logger.Close()

	parser := argparse.NewParser("microcore", "Locate, bind and run models from a flash image")

	scanCmd := parser.NewCommand("scan", "List the models in a flash image")
	scanFlash := scanCmd.String("f", "flash", &argparse.Options{Help: "Flash dump file", Required: true})
	scanLabel := scanCmd.String("l", "label", &argparse.Options{Help: "Models partition label. Empty to use --address and --size", Default: flash.ModelsPartitionLabel})
	scanAddress := scanCmd.String("a", "address", &argparse.Options{Help: "Models address when there is no partition table", Default: kibi.FormatAddress(flash.DefaultModelAddress)})
	scanSize := scanCmd.String("s", "size", &argparse.Options{Help: "Models window size (eg 4MB)", Default: kibi.FormatBytes(flash.DefaultModelSize)})

	packCmd := parser.NewCommand("pack", "Pack replay scripts into a models image")
	packOutput := packCmd.String("o", "output", &argparse.Options{Help: "Output image file", Required: true})
	packScripts := packCmd.StringList("m", "model", &argparse.Options{Help: "Replay script (JSON). May be repeated.", Required: true})

	invokeCmd := parser.NewCommand("invoke", "Run a model from a flash image over a list of JPEG files")
	invokeFlash := invokeCmd.String("f", "flash", &argparse.Options{Help: "Flash dump, or a models image produced by 'pack'", Required: true})
	invokeRaw := invokeCmd.Flag("r", "raw", &argparse.Options{Help: "The flash file is a bare models image, with no partition table"})
	invokeModel := invokeCmd.String("m", "model", &argparse.Options{Help: "Model family to bind (eg yolov8). Empty for the first model."})
	invokeArena := invokeCmd.String("", "arena", &argparse.Options{Help: "Tensor arena size", Default: kibi.FormatBytes(arena.DefaultSize)})
	invokeTopK := invokeCmd.Int("k", "topk", &argparse.Options{Help: "Keep at most this many results. Zero keeps all.", Default: 0})
	invokeScore := invokeCmd.Float("", "score", &argparse.Options{Help: "Score threshold", Default: nn.DefaultScoreThreshold})
	invokeNMS := invokeCmd.Float("", "nms", &argparse.Options{Help: "NMS IoU threshold", Default: nn.DefaultNMSThreshold})
	invokeDecode := invokeCmd.Flag("d", "decode", &argparse.Options{Help: "Decode JPEGs to RGB888 before invoking"})
	invokeClasses := invokeCmd.String("c", "classes", &argparse.Options{Help: "Class names file, one per line"})
	invokeAnnotate := invokeCmd.String("", "annotate", &argparse.Options{Help: "Directory to write annotated PNGs into"})
	invokeImages := invokeCmd.String("i", "images", &argparse.Options{Help: "Comma-separated list of JPEG files", Required: true})

	err = parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	switch {
	case scanCmd.Happened():
		mapper := &flash.FileMapper{
			Path:  *scanFlash,
			Label: *scanLabel,
		}
		mapper.Address, err = kibi.ParseAddress(*scanAddress)
		check(err)
		mapper.Size, err = kibi.ParseBytes(*scanSize)
		check(err)
		err = scan(logger, mapper)
	case packCmd.Happened():
		err = pack(logger, *packOutput, *packScripts)
	case invokeCmd.Happened():
		opt := invokeOptions{
			flash:    *invokeFlash,
			raw:      *invokeRaw,
			images:   strings.Split(*invokeImages, ","),
			decode:   *invokeDecode,
			annotate: *invokeAnnotate,
			invokeConfig: nn.InvokeConfig{
				TopK:           *invokeTopK,
				ScoreThreshold: float32(*invokeScore),
				NMSThreshold:   float32(*invokeNMS),
			},
			modelID: -1,
		}
		if *invokeModel != "" {
			family, err := nn.ParseModelFamily(*invokeModel)
			check(err)
			opt.modelID = int(family)
		}
		opt.arenaSize, err = kibi.ParseBytes(*invokeArena)
		check(err)
		if *invokeClasses != "" {
			opt.classes, err = nn.LoadClassFile(*invokeClasses)
			check(err)
		}
		err = invoke(logger, opt)
	}

	if err != nil {
		logger.Errorf("%v", err)
		logger.Close()
		os.Exit(1)
	}
}

func scan(log logs.Log, mapper flash.Mapper) error {
	region, err := mapper.Map()
	if err != nil {
		return err
	}
	defer region.Close()

	locator := flash.NewLocator()
	locator.Identify = replay.Identify
	models := locator.Scan(region.Data)
	log.Infof("Models region at %v, %v", kibi.FormatAddress(region.Address), kibi.FormatBytes(int64(len(region.Data))))
	for _, m := range models {
		log.Infof("Model %v at %v: %v, %v", m.ID, kibi.FormatAddress(region.Address+int64(m.Offset)), m.Family, kibi.FormatBytes(int64(m.Length)))
	}
	if len(models) == 0 {
		return flash.ErrModelNotFound
	}
	return nil
}

func pack(log logs.Log, output string, scripts []string) error {
	models := [][]byte{}
	for _, filename := range scripts {
		script, err := replay.LoadScript(filename)
		if err != nil {
			return fmt.Errorf("Failed to load '%v': %w", filename, err)
		}
		model, err := replay.Encode(script)
		if err != nil {
			return err
		}
		log.Infof("Model %v: %v, %v frames", len(models)+1, script.Family, len(script.Frames))
		models = append(models, model)
	}
	image, err := replay.BuildImage(flash.DefaultStride, models...)
	if err != nil {
		return err
	}
	log.Infof("Writing %v to %v", kibi.FormatBytes(int64(len(image))), output)
	return os.WriteFile(output, image, 0644)
}

type invokeOptions struct {
	flash        string
	raw          bool
	images       []string
	decode       bool
	annotate     string
	classes      []string
	modelID      int
	arenaSize    int64
	invokeConfig nn.InvokeConfig
}

func invoke(log logs.Log, opt invokeOptions) error {
	var mapper flash.Mapper = &flash.FileMapper{
		Path:  opt.flash,
		Label: flash.ModelsPartitionLabel,
	}
	if opt.raw {
		image, err := os.ReadFile(opt.flash)
		if err != nil {
			return err
		}
		mapper = flash.Bytes(image)
	}

	locator := flash.NewLocator()
	locator.Identify = replay.Identify
	engine := replay.NewEngine(log)
	c := core.New(log, core.Options{
		Engine:  engine,
		Factory: replay.Factory,
		Flash:   mapper,
		Arena:   arena.New(int(opt.arenaSize)),
		Locator: locator,
	})
	ic := opt.invokeConfig
	if err := c.Begin(core.Config{ModelID: opt.modelID, InvokeConfig: &ic}); err != nil {
		return err
	}
	defer c.Close()
	log.Infof("Bound model %v (%v)", c.Descriptor().ID, c.Model().Family())

	if len(opt.classes) == 0 {
		opt.classes = engine.Script().Classes
	}
	if len(opt.classes) == 0 {
		opt.classes = nn.DefaultClasses(c.Model().Family())
	}

	c.RegisterAll(core.NewLogObserver(log, opt.classes))
	annotator := annotate.NewAnnotator(opt.classes)

	src := capture.NewFileSource(log, opt.images...)
	src.Decode = opt.decode
	for i := range opt.images {
		err := capture.Borrow(src, func(buf *frame.SourceBuffer) error {
			f := frame.Normalize(buf)
			summary, err := c.Invoke(f, nil, opt.images[i])
			if err != nil {
				return err
			}
			log.Infof("%v: %v %v in %v", opt.images[i], summary.Count, summary.Kind, summary.Perf.Total())
			if opt.annotate == "" {
				return nil
			}
			img, err := annotate.FrameImage(&f)
			if err != nil {
				return err
			}
			out := fmt.Sprintf("%v/%04d.png", strings.TrimSuffix(opt.annotate, "/"), i)
			return annotator.SavePNG(out, img, annotate.Results{
				Boxes:     c.Boxes(),
				Classes:   c.Classes(),
				Points:    c.Points(),
				Keypoints: c.Keypoints(),
			})
		})
		if err != nil {
			return err
		}
	}
	log.Infof("Perf: %v", c.PerfStats().Summary())
	return nil
}
