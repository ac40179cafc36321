package rigidbody

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"github.com/meshpose/estimator/spatialmath"
)

const twoLinkURDF = `<?xml version="1.0"?>
<robot name="test">
  <link name="world"/>
  <link name="base"/>
  <link name="arm"/>
  <joint name="world_to_base" type="fixed">
    <parent link="world"/>
    <child link="base"/>
    <origin xyz="1 2 3" rpy="0 0 0"/>
  </joint>
  <joint name="base_to_arm" type="fixed">
    <parent link="base"/>
    <child link="arm"/>
    <origin xyz="0 0 1" rpy="0 0 0"/>
  </joint>
</robot>
`

func writeTempURDF(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.urdf")
	test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)
	return path
}

func TestLoadModelSkipsRootLink(t *testing.T) {
	path := writeTempURDF(t, twoLinkURDF)
	model, err := LoadModel(path, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(model.Bodies()), test.ShouldEqual, 2)
}

func TestLoadModelComposesJointChain(t *testing.T) {
	path := writeTempURDF(t, twoLinkURDF)
	model, err := LoadModel(path, nil)
	test.That(t, err, test.ShouldBeNil)

	var arm *Body
	for _, b := range model.Bodies() {
		if b.Name() == "arm" {
			arm = b
		}
	}
	test.That(t, arm, test.ShouldNotBeNil)
	test.That(t, arm.HomePose().Point().X, test.ShouldEqual, 1.0)
	test.That(t, arm.HomePose().Point().Y, test.ShouldEqual, 2.0)
	test.That(t, arm.HomePose().Point().Z, test.ShouldEqual, 4.0)
}

func TestLoadModelMissingFile(t *testing.T) {
	_, err := LoadModel("/nonexistent/path.urdf", nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestLoadModelInvokesMeshLoader(t *testing.T) {
	path := writeTempURDF(t, twoLinkURDF)
	var loaded []string
	model, err := LoadModel(path, func(name string) (*spatialmath.Mesh, error) {
		loaded = append(loaded, name)
		return nil, nil
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(loaded), test.ShouldEqual, len(model.Bodies()))
}
