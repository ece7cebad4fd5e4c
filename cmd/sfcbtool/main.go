package main

import (
	"flag"
	"log"

	"github.com/akaeba/sfcb-go/sfcb"
	"github.com/akaeba/sfcb-go/sfcbcfg"
	"github.com/akaeba/sfcb-go/simflash"
	"github.com/akaeba/sfcb-go/spidev"
)

func main() {
	layoutPath := flag.String("layout", "", "Path to a queue layout YAML file")
	devPath := flag.String("dev", "", "spidev path to use instead of the in-memory simulator, e.g. /dev/spidev0.0")
	imagePath := flag.String("image", "", "Path to persist/restore the simulator's flash image (ignored with -dev)")
	queue := flag.String("queue", "", "Queue name to append a record to and read back")
	record := flag.String("record", "hello", "Record payload to append")

	flag.Parse()

	if *layoutPath == "" {
		log.Fatalln("usage: sfcbtool -layout <layout.yaml> [-dev /dev/spidevX.Y] [-queue NAME] [-record TEXT]")
	}

	layout, err := sfcbcfg.Load(*layoutPath)
	if err != nil {
		log.Fatalln(err)
	}

	flashIdx, ok := sfcb.DescriptorIndexByName(layout.Flash.Type)
	if !ok {
		log.Fatalf("unknown flash type %q", layout.Flash.Type)
	}

	d, err := sfcb.New(flashIdx, len(layout.Queues), layout.Flash.SPIBufSize)
	if err != nil {
		log.Fatalln(err)
	}

	var xfer simflash.Transactor
	if *devPath != "" {
		dev, err := spidev.Open(*devPath, 0, 8, 1000000)
		if err != nil {
			log.Fatalln(err)
		}
		defer dev.Close()
		xfer = dev
	} else if *imagePath != "" {
		fl, err := simflash.Load(*imagePath, d.Descriptor())
		if err != nil {
			log.Println("no existing image, starting fresh:", err)
			fl = simflash.New(d.Descriptor())
		}
		defer func() {
			if err := fl.Save(*imagePath); err != nil {
				log.Println("save image:", err)
			}
		}()
		xfer = fl
	} else {
		xfer = simflash.New(d.Descriptor())
	}

	ids := make(map[string]int, len(layout.Queues))
	for _, q := range layout.Queues {
		id, err := d.RegisterQueue(q.MagicNumber, q.ElemSizeByte, q.NumElem)
		if err != nil {
			log.Fatalf("RegisterQueue(%s): %v", q.Name, err)
		}
		ids[q.Name] = id
		log.Printf("queue %q registered as id %d", q.Name, id)
	}

	if err := d.Mount(); err != nil {
		log.Fatalln("Mount:", err)
	}
	if err := simflash.RunToIdle(d, xfer); err != nil {
		log.Fatalln("Mount run:", err)
	}

	if *queue == "" {
		log.Println("no -queue given, mounted only")
		return
	}

	id, ok := ids[*queue]
	if !ok {
		log.Fatalf("unknown queue %q", *queue)
	}

	if err := d.Append(id, []byte(*record)); err != nil {
		log.Fatalln("Append:", err)
	}
	if err := simflash.RunToIdle(d, xfer); err != nil {
		log.Fatalln("Append run:", err)
	}

	if err := d.Mount(); err != nil {
		log.Fatalln("remount:", err)
	}
	if err := simflash.RunToIdle(d, xfer); err != nil {
		log.Fatalln("remount run:", err)
	}

	buf := make([]byte, len(*record))
	if err := d.Get(id, buf); err != nil {
		log.Fatalln("Get:", err)
	}
	if err := simflash.RunToIdle(d, xfer); err != nil {
		log.Fatalln("Get run:", err)
	}

	log.Printf("read back: %q (id max %d)", buf, d.IDMax(id))
}
