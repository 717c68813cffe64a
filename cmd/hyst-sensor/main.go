// Command hyst-sensor turns noisy inputs into debounced ON/OFF states with
// hysteresis comparators and publishes the transitions to MQTT.
package main

func main() {
	Execute()
}
