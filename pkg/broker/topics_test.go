package broker

import "testing"

func TestQoSFor(t *testing.T) {
	cases := map[string]byte{
		"sensor/soil/f1/s1":        0,
		"sensor/soil/#":            0,
		"event/soilAlert/f1/s1":    1,
		" event/StateChange/f/s ":  1,
	}
	for topic, want := range cases {
		if got := QoSFor(topic); got != want {
			t.Errorf("QoSFor(%q) = %d, want %d", topic, got, want)
		}
	}
}

func TestTopics(t *testing.T) {
	if got := SensorTopic("field1", "sensor1"); got != "sensor/soil/field1/sensor1" {
		t.Errorf("SensorTopic = %s", got)
	}
	if got := AlertTopic("", "a/b"); got != "event/soilAlert/default/a_b" {
		t.Errorf("AlertTopic = %s", got)
	}
	if got := StateChangeTopic("f#", "s+"); got != "event/StateChange/f_/s_" {
		t.Errorf("StateChangeTopic = %s", got)
	}

	f, s, ok := SplitTopic("sensor/soil/field1/sensor2")
	if !ok || f != "field1" || s != "sensor2" {
		t.Errorf("SplitTopic = %s %s %v", f, s, ok)
	}
	if _, _, ok := SplitTopic("sensor/soil"); ok {
		t.Error("short topic accepted")
	}
}
