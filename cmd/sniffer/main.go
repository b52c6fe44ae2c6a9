// The sniffer captures live traffic on the game port and prints the frames
// it can decode, which is handy for debugging client behavior without
// instrumenting the server itself.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
)

var (
	device = flag.String("d", "en0", "Device on which to listen for packets")
	port   = flag.Int("p", 25565, "Game server port to capture")
)

func main() {
	flag.Parse()

	if getDeviceIP() == "" {
		exit("invalid device: %s", *device)
	}

	handle, err := pcap.OpenLive(*device, math.MaxInt32, false, pcap.BlockForever)
	if err != nil {
		exit("error opening handle: %v", err)
	}
	if err := handle.SetBPFFilter(fmt.Sprintf("tcp and port %d", *port)); err != nil {
		exit("error setting capture filter: %v", err)
	}

	s := &sniffer{
		writer:     bufio.NewWriter(os.Stdout),
		serverPort: uint16(*port),
	}

	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
	s.startReading(packetSource.Packets())
}

func exit(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
	os.Exit(1)
}

func getDeviceIP() string {
	devs, _ := pcap.FindAllDevs()
	for _, dev := range devs {
		if dev.Name == *device {
			for _, address := range dev.Addresses {
				return address.IP.String()
			}
		}
	}
	return ""
}
