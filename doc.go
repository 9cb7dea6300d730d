// Package bleio provides Bluetooth Low Energy advertisement scanning and
// GATT access on top of the platform BLE stack (go-ble/ble).
//
// A typical session creates an AdvertisementWatcher, pulls advertisements
// until an interesting device shows up, dials it by address, walks its
// services and characteristics, and opens a CharacteristicIO to read and
// write the device like a byte stream:
//
//	watcher, err := bleio.NewAdvertisementWatcher(nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer watcher.Stop()
//
//	for {
//		adv, ok := watcher.Next()
//		if !ok {
//			break
//		}
//		fmt.Printf("%s %d dBm\n", adv.Address(), adv.SignalStrength())
//	}
//
// All of the protocol work (scanning, connecting, notification delivery)
// is delegated to the platform stack; this package only maps its objects
// into wrapper types and bridges its callbacks into pull-based streams.
package bleio
